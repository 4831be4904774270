package providers

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"videoInsight/core"
)

// Generative is the free-form completion contract used by the chat engine.
// Failures degrade to extractive answers, so implementations just return
// errors and never retry internally.
type Generative interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

type OpenAIGenerative struct {
	cli   *openai.Client
	model string
}

func NewOpenAIGenerative(cli *openai.Client, model string) *OpenAIGenerative {
	return &OpenAIGenerative{cli: cli, model: model}
}

func (g *OpenAIGenerative) Name() string { return "openai:" + g.model }

func (g *OpenAIGenerative) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   600,
		Temperature: 0.2,
	})
	if err != nil {
		return "", core.WrapError(err, core.CodeModelUnavailable, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", core.NewError(core.CodeModelUnavailable, "empty chat completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type GeminiGenerative struct {
	model     *genai.GenerativeModel
	modelName string
}

func NewGeminiGenerative(ctx context.Context, apiKey, modelName string) (*GeminiGenerative, error) {
	if modelName == "" {
		modelName = "gemini-1.5-flash-latest"
	}
	cli, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, core.WrapError(err, core.CodeModelUnavailable, "create gemini client")
	}
	return &GeminiGenerative{model: cli.GenerativeModel(modelName), modelName: modelName}, nil
}

func (g *GeminiGenerative) Name() string { return "gemini:" + g.modelName }

func (g *GeminiGenerative) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", core.WrapError(err, core.CodeModelUnavailable, "gemini request failed")
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", core.NewError(core.CodeModelUnavailable, "empty gemini response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", core.NewError(core.CodeModelUnavailable, "gemini response had no text parts")
	}
	return out, nil
}

// NoGenerative is used when no model backend is configured; every question
// takes the extractive path.
type NoGenerative struct{}

func (NoGenerative) Name() string { return "none" }

func (NoGenerative) Complete(context.Context, string) (string, error) {
	return "", core.NewError(core.CodeModelUnavailable, "no generative backend configured")
}
