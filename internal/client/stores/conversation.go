package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/gateway"
	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/client/notifier"
	"github.com/dmitrijs2005/kumo/internal/client/responder"
	"github.com/dmitrijs2005/kumo/internal/common"
	"github.com/google/uuid"
)

// ConversationState is the observable state of a ConversationStore.
// Messages are oldest first.
type ConversationState struct {
	Messages []models.ChatMessage
	Loading  bool
	Error    string
}

func cloneConversationState(s ConversationState) ConversationState {
	s.Messages = append([]models.ChatMessage(nil), s.Messages...)
	return s
}

// ConversationStore holds the chat with the assistant.
type ConversationStore struct {
	base
	rows      gateway.Rows
	responder responder.Responder
	state     *cell[ConversationState]
}

// NewConversationStore returns an empty store. A nil responder answers with
// responder.Template.
func NewConversationStore(rows gateway.Rows, r responder.Responder, opts ...Option) *ConversationStore {
	if r == nil {
		r = responder.Template{}
	}
	return &ConversationStore{
		base:      newBase("conversation", opts),
		rows:      rows,
		responder: r,
		state:     newCell(ConversationState{}, cloneConversationState),
	}
}

func (s *ConversationStore) Snapshot() ConversationState { return s.state.get() }

func (s *ConversationStore) Subscribe(fn func(ConversationState)) (unsubscribe func()) {
	return s.state.subscribe(fn)
}

func (s *ConversationStore) Close() {
	if s.close() {
		s.state.clearObservers()
	}
}

// LoadMessages replaces the list with the owner's messages, oldest first.
// On failure the previous list stays visible.
func (s *ConversationStore) LoadMessages(ctx context.Context, userID string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	s.state.update(func(st *ConversationState) { st.Loading = true; st.Error = "" })
	var msgs []models.ChatMessage
	q := gateway.Where("user_id", userID).OrderBy("created_at", true)
	if err := s.rows.Select(ctx, gateway.TableMessages, q, &msgs); err != nil {
		return s.fail(ctx, "load messages", err, func(msg string) {
			s.state.update(func(st *ConversationState) { st.Loading = false; st.Error = msg })
		})
	}
	s.state.update(func(st *ConversationState) { st.Messages = msgs; st.Loading = false })
	return ok()
}

// SendMessage appends the user's message immediately, persists it, notifies
// the webhook and appends the assistant's reply. Persistence failures are
// logged and leave the local entries in place with temporary ids, so a
// successful call always adds two messages.
func (s *ConversationStore) SendMessage(ctx context.Context, text, userID string) Result {
	release, err := s.acquire()
	if err != nil {
		return failed(err)
	}
	defer release()

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		err = fmt.Errorf("%w: message is empty", common.ErrValidation)
	case userID == "":
		err = common.ErrNotAuthenticated
	}
	if err != nil {
		return s.fail(ctx, "send message", err, func(msg string) {
			s.state.update(func(st *ConversationState) { st.Error = msg })
		})
	}

	s.state.update(func(st *ConversationState) { st.Loading = true; st.Error = "" })

	s.appendPersisted(ctx, userID, text, models.RoleUser)
	s.sink.Dispatch(notifier.Primary, notifier.MessagePayload(text, userID, s.now()))

	reply, err := s.responder.Reply(ctx, text, s.Snapshot().Messages)
	if err != nil {
		s.log.Warn(ctx, "responder failed; using template", "error", err)
		reply, _ = responder.Template{}.Reply(ctx, text, nil)
	}
	s.appendPersisted(ctx, userID, reply, models.RoleAssistant)

	s.state.update(func(st *ConversationState) { st.Loading = false })
	return ok()
}

// appendPersisted appends a local entry with a temporary id, inserts it and
// swaps in the stored row on success.
func (s *ConversationStore) appendPersisted(ctx context.Context, userID, content string, role models.Role) {
	now := s.now()
	local := models.ChatMessage{
		ID:        models.TempIDPrefix + uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.state.update(func(st *ConversationState) { st.Messages = append(st.Messages, local) })

	var saved models.ChatMessage
	err := s.rows.Insert(ctx, gateway.TableMessages, models.NewChatMessage{UserID: userID, Content: content, Role: role}, &saved)
	if err == nil && saved.ID == "" {
		err = errors.New("insert returned no id")
	}
	if err != nil {
		s.log.Warn(ctx, "persist message failed; keeping local copy", "role", string(role), "error", err)
		return
	}

	s.state.update(func(st *ConversationState) {
		for i := range st.Messages {
			if st.Messages[i].ID == local.ID {
				st.Messages[i] = saved
				return
			}
		}
	})
}

// ClearMessages empties the local list. Stored messages are untouched.
func (s *ConversationStore) ClearMessages() {
	s.state.update(func(st *ConversationState) {
		st.Messages = nil
		st.Error = ""
	})
}
