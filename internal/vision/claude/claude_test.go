package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/prompt"
	"github.com/vbonduro/shotcoach/internal/vision"
)

const reply = "```json\n" + `{"estimatedSettings":{"aperture":"f/8","shutterSpeed":"1/60","iso":"ISO 100","mode":"Av","whiteBalance":"5200K","wbShift":"A1, G0"},"r50Guide":"Use a tripod.","tips":["Use the 2 second timer."]}` + "\n```"

// wireRequest mirrors the Messages API request body as it arrives on the wire.
type wireRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content []struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Source *struct {
				Type      string `json:"type"`
				MediaType string `json:"media_type"`
				Data      string `json:"data"`
			} `json:"source"`
		} `json:"content"`
	} `json:"messages"`
}

func newAnalyzer(t *testing.T, baseURL string) *ClaudeAnalyzer {
	t.Helper()
	b, err := prompt.New("", "", "")
	require.NoError(t, err)
	return newClaudeAnalyzer("sk-test", "claude-opus-4-6", baseURL, nil, b, nil)
}

func writeMessage(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]interface{}{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-opus-4-6",
		"stop_reason": "end_turn",
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"usage": map[string]int{"input_tokens": 10, "output_tokens": 20},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func TestClaudeAnalyze(t *testing.T) {
	var got wireRequest
	var path, apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		apiKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeMessage(t, w, reply)
	}))
	defer server.Close()

	result, err := newAnalyzer(t, server.URL).Analyze(context.Background(), "data:image/webp;base64,UklGRg==", domain.ModeReplicate)
	require.NoError(t, err)
	assert.Equal(t, "f/8", result.EstimatedSettings.Aperture)
	assert.Equal(t, "Use a tripod.", result.Guide)

	assert.True(t, strings.HasSuffix(path, "/messages"), path)
	assert.Equal(t, "sk-test", apiKey)
	assert.Equal(t, "claude-opus-4-6", got.Model)
	assert.Equal(t, maxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 2)
	img := got.Messages[0].Content[0]
	assert.Equal(t, "image", img.Type)
	require.NotNil(t, img.Source)
	assert.Equal(t, "base64", img.Source.Type)
	assert.Equal(t, "image/webp", img.Source.MediaType)
	assert.Equal(t, "UklGRg==", img.Source.Data)
	assert.Equal(t, "text", got.Messages[0].Content[1].Type)
	assert.Contains(t, got.Messages[0].Content[1].Text, "reproduce this photo")
}

func TestClaudeAnalyzeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	defer server.Close()

	_, err := newAnalyzer(t, server.URL).Analyze(context.Background(), "UklGRg==", domain.ModeReplicate)
	assert.Error(t, err)
}

func TestClaudeAnalyzeNoTextBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_test","type":"message","role":"assistant","content":[]}`))
	}))
	defer server.Close()

	_, err := newAnalyzer(t, server.URL).Analyze(context.Background(), "UklGRg==", domain.ModeOptimize)
	assert.ErrorIs(t, err, vision.ErrNoResponse)
}

func TestClaudeAnalyzeRejectsUnsupportedImage(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeMessage(t, w, reply)
	}))
	defer server.Close()

	_, err := newAnalyzer(t, server.URL).Analyze(context.Background(), "data:image/heic;base64,AAAA", domain.ModeReplicate)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Zero(t, calls.Load())
}

func TestSupportedMIME(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "image/png", want: "image/png"},
		{in: "image/webp", want: "image/webp"},
		{in: "image/gif", want: "image/gif"},
		{in: "image/jpeg", want: "image/jpeg"},
		{in: "image/jpg", want: "image/jpeg"},
		{in: "image/heic", wantErr: true},
		{in: "image/avif", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := supportedMIME(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
