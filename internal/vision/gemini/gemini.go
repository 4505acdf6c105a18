package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/imagedata"
	"github.com/vbonduro/shotcoach/internal/vision"
)

const DefaultModel = "gemini-2.5-flash"

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Prompts    vision.PromptBuilder
	Logger     *slog.Logger
}

type GeminiAnalyzer struct {
	client  *genai.Client
	model   string
	prompts vision.PromptBuilder
	logger  *slog.Logger
}

func NewGeminiAnalyzer(ctx context.Context, opts Options) (*GeminiAnalyzer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if opts.Prompts == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.BaseURL,
			APIVersion: opts.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiAnalyzer{
		client:  client,
		model:   model,
		prompts: opts.Prompts,
		logger:  logger,
	}, nil
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error) {
	start := time.Now()
	result, err := a.analyze(ctx, imageDataURI, mode)
	if err != nil {
		a.logger.Error("gemini analysis failed", "mode", mode, "model", a.model, "error", err)
		return nil, err
	}
	a.logger.Info("gemini analysis complete", "mode", mode, "model", a.model,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (a *GeminiAnalyzer) analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error) {
	text, err := a.prompts.Build(mode)
	if err != nil {
		return nil, err
	}

	mimeType, imageData, err := imagedata.Decode(imageDataURI)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{
				MIMEType: mimeType,
				Data:     imageData,
			}},
			{Text: text},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, vision.ErrNoResponse
	}
	return vision.ParseResponse(raw)
}
