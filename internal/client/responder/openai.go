package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kumo/internal/client/models"
	"github.com/dmitrijs2005/kumo/internal/logging"
	"github.com/sashabaranov/go-openai"
)

// DefaultSystemPrompt frames the model as the wellness companion.
const DefaultSystemPrompt = "Eres Kumo, un acompañante empático de bienestar mental. " +
	"Responde con calidez y brevedad, en el idioma del usuario. " +
	"No diagnostiques; si detectas riesgo, sugiere buscar ayuda profesional."

// OpenAIConfig configures an OpenAI-compatible responder.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	// HistoryLimit caps how many previous messages are sent; 0 means 20.
	HistoryLimit int
}

// OpenAI asks a chat-completion model for the reply and falls back to
// another Responder when the call fails.
type OpenAI struct {
	client   *openai.Client
	cfg      OpenAIConfig
	fallback Responder
	log      logging.Logger
}

var _ Responder = (*OpenAI)(nil)

// NewOpenAI returns an OpenAI responder. A nil fallback means Template{}.
func NewOpenAI(cfg OpenAIConfig, fallback Responder, log logging.Logger) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = 20
	}
	if fallback == nil {
		fallback = Template{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(clientConfig),
		cfg:      cfg,
		fallback: fallback,
		log:      log.With("component", "responder"),
	}
}

// Reply never returns an error while the fallback succeeds.
func (o *OpenAI) Reply(ctx context.Context, text string, history []models.ChatMessage) (string, error) {
	reply, err := o.complete(ctx, text, history)
	if err == nil {
		return reply, nil
	}
	o.log.Warn(ctx, "model reply failed; using fallback", "error", err)
	return o.fallback.Reply(ctx, text, history)
}

func (o *OpenAI) complete(ctx context.Context, text string, history []models.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    o.messages(text, history),
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("chat completion returned an empty reply")
	}
	return reply, nil
}

// messages builds the prompt: system, then the most recent history, then
// text unless history already ends with it.
func (o *OpenAI) messages(text string, history []models.ChatMessage) []openai.ChatCompletionMessage {
	if n := o.cfg.HistoryLimit; len(history) > n {
		history = history[len(history)-n:]
	}

	out := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.cfg.SystemPrompt})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	last := len(history) - 1
	if last < 0 || history[last].Role != models.RoleUser || history[last].Content != text {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
	}
	return out
}
