// Package client bootstraps the local SQLite database used by the client:
// opening it under the data directory and applying the embedded goose
// migrations.
//
// The local database only holds client metadata (the sealed session and
// vault keys); chat, task and mood data live in the hosted backend.
package client
