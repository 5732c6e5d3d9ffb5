// Package llm wraps the Anthropic SDK behind the small completion surface
// the orchestration tree consumes: text analysis, image analysis, and plain
// prompt completion. All three return raw model text; turning that text into
// structured records is the caller's concern.
package llm

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultModel       = "claude-haiku-4-5-20251001"
	defaultVisionModel = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 2048
)

// Client defines the model operations used by the orchestrator.
type Client interface {
	// AnalyzeImage sends a local image file plus an instruction prompt.
	AnalyzeImage(ctx context.Context, imagePath, prompt string) (string, error)
	// AnalyzeText sends an item description plus an instruction prompt.
	AnalyzeText(ctx context.Context, text, prompt string) (string, error)
	// Complete runs a plain completion with an optional system prompt.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is the request shape for Complete.
type CompletionRequest struct {
	System    string
	Prompt    string
	Model     string
	MaxTokens int64
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default text model.
func WithModel(model string) Option {
	return func(c *sdkClient) { c.model = model }
}

// WithVisionModel overrides the model used for image analysis.
func WithVisionModel(model string) Option {
	return func(c *sdkClient) { c.visionModel = model }
}

type sdkClient struct {
	client      sdk.Client
	model       string
	visionModel string
}

// NewClient creates an Anthropic-backed client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		client:      sdk.NewClient(option.WithAPIKey(apiKey)),
		model:       defaultModel,
		visionModel: defaultVisionModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sdkClient) AnalyzeImage(ctx context.Context, imagePath, prompt string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", eris.Wrap(err, "llm: read image")
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	imageBlock := sdk.NewImageBlockBase64(mediaTypeFor(imagePath), encoded)

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.visionModel),
		MaxTokens: defaultMaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(imageBlock, sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: analyze image")
	}

	logUsage("analyze_image", c.visionModel, msg)
	return firstText(msg), nil
}

func (c *sdkClient) AnalyzeText(ctx context.Context, text, prompt string) (string, error) {
	return c.Complete(ctx, CompletionRequest{
		Prompt: prompt + "\n\n" + text,
	})
}

func (c *sdkClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", eris.Wrap(err, "llm: complete")
	}

	logUsage("complete", model, msg)
	return firstText(msg), nil
}

func firstText(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

func logUsage(op, model string, msg *sdk.Message) {
	zap.L().Debug("llm: completion finished",
		zap.String("operation", op),
		zap.String("model", model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
}

func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
