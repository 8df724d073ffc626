// Package responder produces the assistant's reply to a chat message.
package responder

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/kumo/internal/client/models"
)

// DefaultTemplate is the canned acknowledgement; %s is the user's text.
const DefaultTemplate = `Gracias por tu mensaje: "%s". Estoy aquí para ayudarte con tu bienestar mental.`

// Responder generates a reply to text given the conversation so far
// (oldest first, text already included as the last user message).
type Responder interface {
	Reply(ctx context.Context, text string, history []models.ChatMessage) (string, error)
}

// Template answers with a fixed format string.
type Template struct {
	Format string
}

var _ Responder = Template{}

func (t Template) Reply(_ context.Context, text string, _ []models.ChatMessage) (string, error) {
	format := t.Format
	if format == "" {
		format = DefaultTemplate
	}
	return fmt.Sprintf(format, text), nil
}
