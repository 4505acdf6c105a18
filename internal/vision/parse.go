package vision

import (
	"encoding/json"
	"strings"

	"github.com/vbonduro/shotcoach/internal/domain"
)

// ParseResponse decodes the model's JSON reply and validates it against the
// schema. JSON syntax errors are returned as is so callers can inspect them.
func ParseResponse(raw string) (*domain.Analysis, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	if text == "" {
		return nil, ErrNoResponse
	}

	var analysis domain.Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, err
	}
	if err := analysis.Validate(); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// stripCodeFence removes a surrounding ```json fence. Backends without a JSON
// response mode sometimes wrap their answer in one.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
