// Package stores holds the client-side state for the four product areas:
// session, conversation, tasks and moods.
//
// Each store is constructed explicitly and owned by the caller; Close tears
// down its subscriptions. Actions on one store are serialized (a single
// writer), so concurrent calls are applied one after another against the
// latest state. Reads through Snapshot never block on a running action.
//
// Actions never return Go errors. They return a Result and record the
// human-readable message in the store's Error field, leaving the previously
// loaded data visible. Webhook notifications are dispatched in the
// background and their outcome never reaches the store.
//
// Subscribe callbacks run synchronously after each state change, possibly
// while an action holds the writer lock; they must not call actions on the
// same store.
package stores
