package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Default(t *testing.T) {
	got, err := Template{}.Reply(context.Background(), "hola", nil)
	require.NoError(t, err)
	assert.Equal(t, `Gracias por tu mensaje: "hola". Estoy aquí para ayudarte con tu bienestar mental.`, got)
}

func TestTemplate_Custom(t *testing.T) {
	got, err := Template{Format: "echo: %s"}.Reply(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "echo: x", got)
}

func fakeOpenAI(t *testing.T, handler func(req openai.ChatCompletionRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_UsesModelReply(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := fakeOpenAI(t, func(req openai.ChatCompletionRequest) (int, any) {
		seen = req
		return http.StatusOK, openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "  Te escucho.  "}}},
		}
	})

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "test-model"}, nil, nil)
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "antes"},
		{Role: models.RoleAssistant, Content: "respuesta"},
		{Role: models.RoleUser, Content: "me siento cansado"},
	}

	got, err := o.Reply(context.Background(), "me siento cansado", history)
	require.NoError(t, err)
	assert.Equal(t, "Te escucho.", got)

	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, seen.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, seen.Messages[2].Role)
	assert.Equal(t, "me siento cansado", seen.Messages[3].Content)
}

func TestOpenAI_FallsBackOnError(t *testing.T) {
	srv := fakeOpenAI(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusInternalServerError, map[string]any{"error": map[string]any{"message": "overloaded"}}
	})

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, Template{Format: "fallback: %s"}, nil)
	got, err := o.Reply(context.Background(), "hola", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback: hola", got)
}

func TestOpenAI_FallsBackOnEmptyChoices(t *testing.T) {
	srv := fakeOpenAI(t, func(openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, openai.ChatCompletionResponse{}
	})

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, nil, nil)
	got, err := o.Reply(context.Background(), "hola", nil)
	require.NoError(t, err)
	assert.Contains(t, got, `"hola"`)
}

func TestOpenAI_MessagesTrimsHistoryAndAppendsText(t *testing.T) {
	o := NewOpenAI(OpenAIConfig{HistoryLimit: 2}, nil, nil)
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "1"},
		{Role: models.RoleAssistant, Content: "2"},
		{Role: models.RoleUser, Content: "3"},
	}

	msgs := o.messages("nuevo", history)
	require.Len(t, msgs, 4)
	assert.Equal(t, "2", msgs[1].Content)
	assert.Equal(t, "3", msgs[2].Content)
	assert.Equal(t, "nuevo", msgs[3].Content)
}
