package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/prompt"
)

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("completion returned no choices")

// ChatAPI is the slice of go-openai used for generation.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ChatConfig struct {
	Model       string
	Temperature float32
}

// ChatGenerator answers a question with a chat completion.
type ChatGenerator struct {
	api    ChatAPI
	cfg    ChatConfig
	prompt *prompt.Builder
}

func NewChatGenerator(api ChatAPI, cfg ChatConfig, builder *prompt.Builder) *ChatGenerator {
	if builder == nil {
		builder = prompt.NewBuilder(nil, 0)
	}
	return &ChatGenerator{api: api, cfg: cfg, prompt: builder}
}

// Generate sends the rendered system prompt followed by the raw question.
func (g *ChatGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.prompt.System(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Question},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
