// Package notifier posts fire-and-forget event notifications (chat
// messages, mood entries, task changes) to an external automation webhook.
// Delivery failures are reported in the Result and logged; they never
// affect the store operation that triggered them.
package notifier

import (
	"context"
	"encoding/json"
	"time"
)

// Endpoint selects which configured webhook URL receives a payload.
type Endpoint int

const (
	Primary Endpoint = iota
	Test
)

func (e Endpoint) String() string {
	if e == Test {
		return "test"
	}
	return "primary"
}

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Message   string         `json:"message"`
	UserID    string         `json:"userId,omitempty"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Type returns metadata.type, or "message" for plain chat payloads.
func (p Payload) Type() string {
	if t, ok := p.Metadata["type"].(string); ok {
		return t
	}
	return "message"
}

// Result is the outcome of one delivery.
type Result struct {
	Success bool
	Data    json.RawMessage
	Error   string
}

// Notifier delivers a payload to an endpoint.
type Notifier interface {
	Notify(ctx context.Context, ep Endpoint, p Payload) Result
}

// TaskAction names a task change.
type TaskAction string

const (
	TaskCreated TaskAction = "created"
	TaskUpdated TaskAction = "updated"
	TaskDeleted TaskAction = "deleted"
)

// Timestamp formats t the way the webhook expects: UTC, millisecond
// precision, Z suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// MessagePayload announces a chat message sent by the user.
func MessagePayload(text, userID string, now time.Time) Payload {
	return Payload{Message: text, UserID: userID, Timestamp: Timestamp(now)}
}

// TestPayload is sent to the Test endpoint to check the integration.
func TestPayload(text, userID string, now time.Time) Payload {
	return Payload{
		Message:   text,
		UserID:    userID,
		Timestamp: Timestamp(now),
		Metadata:  map[string]any{"test": true},
	}
}

// MoodPayload announces a new mood entry. A nil note is left out of the
// metadata.
func MoodPayload(mood, userID string, note *string, now time.Time) Payload {
	md := map[string]any{"type": "mood_update", "mood": mood}
	if note != nil {
		md["note"] = *note
	}
	return Payload{
		Message:   "Mood update: " + mood,
		UserID:    userID,
		Timestamp: Timestamp(now),
		Metadata:  md,
	}
}

// TaskPayload announces a task change.
func TaskPayload(title string, action TaskAction, userID string, now time.Time) Payload {
	return Payload{
		Message:   "Task " + string(action) + ": " + title,
		UserID:    userID,
		Timestamp: Timestamp(now),
		Metadata:  map[string]any{"type": "task_update", "action": string(action), "taskTitle": title},
	}
}
