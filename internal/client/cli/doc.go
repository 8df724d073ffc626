// Package cli provides the interactive Kumo command-line client.
//
// App drives the session, conversation, task and mood stores from a simple
// REPL. On start it restores any saved session, loads the user's data and
// starts a background watcher that pings the backend and flips the prompt
// between online and offline.
//
// Commands are grouped by area:
//   - account: register, login, logout, reset, profile, rename, avatar
//   - chat: chat, history, clear
//   - tasks: tasks, addtask, edit, toggle, deltask
//   - mood: mood, moods, today
//   - webhooks: webhook-test, stats
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
