package qualification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wchic_backend/platform/config"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	maxReplyTokens = 500
	temperature    = 0.7
)

// Turn is one stored conversation message.
type Turn struct {
	FromAgent bool
	Content   string
}

// Completer produces the next agent reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, system string, history []Turn) (string, error)
}

var errEmptyReply = errors.New("model returned an empty reply")

// NewCompleter picks the configured provider. It returns nil when the
// provider has no API key, which switches qualification off.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	switch strings.ToLower(cfg.GetLLMProvider()) {
	case "gemini":
		if cfg.GetGeminiAPIKey() == "" {
			return nil, nil
		}
		return newGeminiCompleter(ctx, cfg.GetGeminiAPIKey(), cfg.GetGeminiModel())
	default:
		key := cfg.GetOpenAIAPIKey()
		if key == "" || key == "dummy" {
			return nil, nil
		}
		return newOpenAICompleter(openai.DefaultConfig(key), cfg.GetOpenAIModel()), nil
	}
}

type openAICompleter struct {
	client *openai.Client
	model  string
}

func newOpenAICompleter(cfg openai.ClientConfig, model string) *openAICompleter {
	return &openAICompleter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *openAICompleter) Complete(ctx context.Context, system string, history []Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.FromAgent {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxReplyTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errEmptyReply
	}
	return resp.Choices[0].Message.Content, nil
}

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func newGeminiCompleter(ctx context.Context, apiKey, model string) (*geminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

func (c *geminiCompleter) Complete(ctx context.Context, system string, history []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		var role genai.Role = genai.RoleUser
		if t.FromAgent {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](temperature),
		MaxOutputTokens:   maxReplyTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyReply
	}
	return text, nil
}
