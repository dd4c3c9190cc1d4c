// Package llm contains clients for the upstream model capabilities the
// pipeline consumes: an OpenAI-compatible chat-completion provider (Groq
// by default) and the HuggingFace inference endpoint used for remote
// emotion classification.
//
// Both clients make a single attempt per call with a bounded timeout; no
// retries. Callers are expected to absorb failures into their own
// fallbacks.
package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/mindloom/support-backend/internal/domain"
)

// ErrNoChoices is returned when the provider responds without any
// completion choices.
var ErrNoChoices = errors.New("no choices in completion response")

// Provider is a chat-completion client over any OpenAI-compatible API.
// Groq, OpenAI, and compatible gateways differ only in base URL and model
// name, so provider choice is pure configuration.
type Provider struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// ProviderOptions configures a Provider.
type ProviderOptions struct {
	APIKey      string
	BaseURL     string        // e.g. "https://api.groq.com/openai/v1"
	Model       string        // e.g. "llama-3.1-8b-instant"
	Temperature float64       // sampling temperature
	MaxTokens   int           // bound on generated tokens
	Timeout     time.Duration // one round trip, no retries
}

// NewProvider builds a Provider from options.
func NewProvider(opts ProviderOptions) *Provider {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &Provider{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Complete sends the system prompt, prior turns, and the current user
// message to the provider and returns the generated text.
func (p *Provider) Complete(ctx context.Context, systemPrompt string, turns []domain.Turn, userMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userMessage))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.model),
		Messages:    messages,
		Temperature: openai.Float(p.temperature),
		MaxTokens:   openai.Int(int64(p.maxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
