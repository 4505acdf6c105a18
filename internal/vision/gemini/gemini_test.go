package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/shotcoach/internal/domain"
	"github.com/vbonduro/shotcoach/internal/prompt"
	"github.com/vbonduro/shotcoach/internal/vision"
)

const testImage = "data:image/png;base64,iVBORw0KGgo="

const replyJSON = `{"estimatedSettings":{"aperture":"f/4","shutterSpeed":"1/125","iso":"ISO 800","mode":"Manual (M)","whiteBalance":"Auto","wbShift":"B1, M1"},"r50Guide":"Turn the mode dial to M.","tips":["Brace your elbows.","Use the grid overlay."]}`

// fakeGemini mimics the generateContent endpoint and records the last
// request body it received.
type fakeGemini struct {
	mu       sync.Mutex
	lastPath string
	lastBody string
	status   int
	text     *string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.lastPath = r.URL.Path
	f.lastBody = string(body)
	f.mu.Unlock()

	if f.status != 0 && f.status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
		return
	}

	resp := map[string]any{"candidates": []any{}}
	if f.text != nil {
		resp["candidates"] = []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": *f.text}},
			},
			"finishReason": "STOP",
		}}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func newTestAnalyzer(t *testing.T, fake *fakeGemini) *GeminiAnalyzer {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	analyzer, err := NewGeminiAnalyzer(context.Background(), Options{
		APIKey:     "test-key",
		Model:      "gemini-2.5-flash",
		BaseURL:    server.URL,
		APIVersion: "v1beta",
		HTTPClient: server.Client(),
		Prompts:    mustBuilder(t),
	})
	require.NoError(t, err)
	return analyzer
}

func mustBuilder(t *testing.T) *prompt.Builder {
	t.Helper()
	b, err := prompt.New("", "", "")
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

func TestGeminiAnalyze(t *testing.T) {
	fake := &fakeGemini{text: strPtr(replyJSON)}
	analyzer := newTestAnalyzer(t, fake)

	result, err := analyzer.Analyze(context.Background(), testImage, domain.ModeReplicate)
	require.NoError(t, err)

	assert.Equal(t, &domain.Analysis{
		EstimatedSettings: domain.EstimatedSettings{
			Aperture:     "f/4",
			ShutterSpeed: "1/125",
			ISO:          "ISO 800",
			Mode:         "Manual (M)",
			WhiteBalance: "Auto",
			WBShift:      "B1, M1",
		},
		Guide: "Turn the mode dial to M.",
		Tips:  []string{"Brace your elbows.", "Use the grid overlay."},
	}, result)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, strings.HasSuffix(fake.lastPath, "models/gemini-2.5-flash:generateContent"), fake.lastPath)
	assert.Contains(t, fake.lastBody, "application/json")
	assert.Contains(t, fake.lastBody, "inlineData")
	assert.Contains(t, fake.lastBody, "image/png")
	assert.Contains(t, fake.lastBody, "iVBORw0KGgo=")
	assert.Contains(t, fake.lastBody, "reproduce this photo")
}

func TestGeminiAnalyzeEmptyResponse(t *testing.T) {
	analyzer := newTestAnalyzer(t, &fakeGemini{})

	_, err := analyzer.Analyze(context.Background(), testImage, domain.ModeOptimize)
	assert.ErrorIs(t, err, vision.ErrNoResponse)
}

func TestGeminiAnalyzeInvalidJSON(t *testing.T) {
	analyzer := newTestAnalyzer(t, &fakeGemini{text: strPtr(`{"estimatedSettings": oops}`)})

	_, err := analyzer.Analyze(context.Background(), testImage, domain.ModeOptimize)
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestGeminiAnalyzeAPIError(t *testing.T) {
	analyzer := newTestAnalyzer(t, &fakeGemini{status: http.StatusBadRequest})

	_, err := analyzer.Analyze(context.Background(), testImage, domain.ModeReplicate)
	assert.Error(t, err)
}

func TestGeminiAnalyzeBadPayload(t *testing.T) {
	fake := &fakeGemini{text: strPtr(replyJSON)}
	analyzer := newTestAnalyzer(t, fake)

	_, err := analyzer.Analyze(context.Background(), "data:image/png;base64,%%%", domain.ModeReplicate)
	assert.Error(t, err)
	assert.Empty(t, fake.lastBody, "no request should be sent for an undecodable image")
}

func TestNewGeminiAnalyzerRequiresKey(t *testing.T) {
	_, err := NewGeminiAnalyzer(context.Background(), Options{Prompts: mustBuilder(t)})
	assert.Error(t, err)
}
