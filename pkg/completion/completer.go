package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/NikoToRA/koereq-sync/pkg/session"
)

// Completer generates text from a session's transcript chunks and a prompt
// kind. The sync core only stores the returned text.
type Completer interface {
	Complete(ctx context.Context, transcripts []string, kind session.PromptKind) (string, error)
}

// OpenAICompleter implements Completer against the OpenAI chat completion API
type OpenAICompleter struct {
	client openai.Client
	model  string
}

// NewOpenAICompleter creates a completer with the given API key and model.
// An empty model falls back to gpt-4o.
func NewOpenAICompleter(apiKey, model string) *OpenAICompleter {
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &OpenAICompleter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete renders the prompt and calls the chat completion endpoint
func (c *OpenAICompleter) Complete(ctx context.Context, transcripts []string, kind session.PromptKind) (string, error) {
	prompt := RenderPrompt(kind.Template, transcripts)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
