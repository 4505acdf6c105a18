package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/imagedata"
	"github.com/vbonduro/shotcoach/internal/vision"
)

type OllamaAnalyzer struct {
	host    string
	model   string
	client  *http.Client
	prompts vision.PromptBuilder
	logger  *slog.Logger
}

func NewOllamaAnalyzer(host, model string, client *http.Client, prompts vision.PromptBuilder, logger *slog.Logger) *OllamaAnalyzer {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaAnalyzer{
		host:    host,
		model:   model,
		client:  client,
		prompts: prompts,
		logger:  logger,
	}
}

func (a *OllamaAnalyzer) Analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error) {
	result, err := a.analyze(ctx, imageDataURI, mode)
	if err != nil {
		a.logger.Error("ollama analysis failed", "mode", mode, "model", a.model, "error", err)
		return nil, err
	}
	return result, nil
}

func (a *OllamaAnalyzer) analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error) {
	text, err := a.prompts.Build(mode)
	if err != nil {
		return nil, err
	}

	// Ollama takes the base64 payload without the data URI header.
	_, encoded := imagedata.Split(imageDataURI)

	// format=json constrains the model to emit a single JSON document.
	reqBody := map[string]interface{}{
		"model":  a.model,
		"prompt": text,
		"images": []string{encoded},
		"format": "json",
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return vision.ParseResponse(respBody.Response)
}
