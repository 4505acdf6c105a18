package claude

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/imagedata"
	"github.com/vbonduro/shotcoach/internal/vision"
)

const defaultBaseURL = "https://api.anthropic.com/v1"

// A guide plus tips runs to roughly a thousand tokens; the rest is headroom
// for languages that tokenize densely.
const maxTokens = 4096

// ErrUnsupportedImage is returned for image types the Messages API rejects.
var ErrUnsupportedImage = errors.New("claude accepts only jpeg, png, gif and webp images")

type ClaudeAnalyzer struct {
	client  *anthropic.Client
	model   string
	prompts vision.PromptBuilder
	logger  *slog.Logger
}

func NewClaudeAnalyzer(apiKey, model string, client *http.Client, prompts vision.PromptBuilder, logger *slog.Logger) *ClaudeAnalyzer {
	return newClaudeAnalyzer(apiKey, model, defaultBaseURL, client, prompts, logger)
}

func newClaudeAnalyzer(apiKey, model, baseURL string, client *http.Client, prompts vision.PromptBuilder, logger *slog.Logger) *ClaudeAnalyzer {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey,
			anthropic.WithHTTPClient(client),
			anthropic.WithBaseURL(baseURL),
		),
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

// buildMessages constructs the user turn for a vision request: the image
// block first, then the instructions.
func buildMessages(imageDataURI, text string) ([]anthropic.Message, error) {
	mimeType, encoded := imagedata.Split(imageDataURI)
	mediaType, err := supportedMIME(mimeType)
	if err != nil {
		return nil, err
	}
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				mediaType,
				encoded,
			)),
			anthropic.NewTextMessageContent(text),
		},
	}}, nil
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error) {
	result, err := a.analyze(ctx, imageDataURI, mode)
	if err != nil {
		a.logger.Error("claude analysis failed", "mode", mode, "model", a.model, "error", err)
		return nil, err
	}
	return result, nil
}

func (a *ClaudeAnalyzer) analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error) {
	text, err := a.prompts.Build(mode)
	if err != nil {
		return nil, err
	}

	messages, err := buildMessages(imageDataURI, text)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var responseText string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			responseText = c.GetText()
			break
		}
	}

	return vision.ParseResponse(responseText)
}

// supportedMIME passes through the four image types the Messages API
// accepts. HEIC, AVIF and the rest are rejected rather than relabelled,
// so uploads in those formats need the gemini or ollama backend.
func supportedMIME(mimeType string) (string, error) {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return mimeType, nil
	case "image/jpg":
		return "image/jpeg", nil
	default:
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedImage, mimeType)
	}
}
