package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/models"
)

// Chat sends a message and prints Kumo's reply. Without arguments the
// message is read as multiline input.
func (a *App) Chat(ctx context.Context, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		var err error
		if text, err = promptMultiline(a.reader, a.out, "Message"); err != nil {
			return err
		}
	}

	if err := a.Conversation.SendMessage(ctx, text, a.userID()).Err(); err != nil {
		return err
	}

	msgs := a.Conversation.Snapshot().Messages
	if n := len(msgs); n > 0 && msgs[n-1].Role == models.RoleAssistant {
		a.printf("kumo: %s\n", msgs[n-1].Content)
	}
	return nil
}

func (a *App) History(context.Context, []string) error {
	msgs := a.Conversation.Snapshot().Messages
	if len(msgs) == 0 {
		a.println("No messages yet. Say hi with: chat hello")
		return nil
	}
	for _, m := range msgs {
		who := "you"
		if m.Role == models.RoleAssistant {
			who = "kumo"
		}
		marker := ""
		if m.IsTemporary() {
			marker = " (not saved)"
		}
		a.printf("[%s] %s: %s%s\n", m.CreatedAt.Local().Format("Jan 2 15:04"), who, m.Content, marker)
	}
	return nil
}

func (a *App) ClearChat(context.Context, []string) error {
	a.Conversation.ClearMessages()
	a.println("Conversation cleared.")
	return nil
}
