// Package anthropic generates answers with Claude models.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/prompt"
)

const DefaultMaxTokens = 1024

// ErrEmptyResponse is returned when the reply carries no text blocks.
var ErrEmptyResponse = errors.New("no response from Anthropic")

// MessagesAPI is the subset of the SDK's message service used here.
type MessagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...anthropicopt.RequestOption) (*anthropic.Message, error)
}

type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
}

type Generator struct {
	api    MessagesAPI
	cfg    Config
	prompt *prompt.Builder
}

// NewGenerator creates a Generator backed by the real API.
func NewGenerator(cfg Config, builder *prompt.Builder) *Generator {
	client := anthropic.NewClient(
		anthropicopt.WithAPIKey(cfg.APIKey),
	)
	return NewGeneratorWithAPI(&client.Messages, cfg, builder)
}

func NewGeneratorWithAPI(api MessagesAPI, cfg Config, builder *prompt.Builder) *Generator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if builder == nil {
		builder = prompt.NewBuilder(nil, 0)
	}
	return &Generator{api: api, cfg: cfg, prompt: builder}
}

func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.cfg.Model),
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: anthropic.Float(g.cfg.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: g.prompt.System(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Question)),
		},
	}

	rsp, err := g.api.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}

	result := b.String()
	if len(result) == 0 {
		return "", ErrEmptyResponse
	}

	return result, nil
}
