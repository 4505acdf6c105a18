package vision

import (
	"context"
	"errors"

	"github.com/vbonduro/shotcoach/internal/domain"
)

// ErrNoResponse is returned when the model replies without any text.
var ErrNoResponse = errors.New("no response from model")

// VisionAnalyzer sends one photo to a multimodal model and returns its
// camera-setting analysis. imageDataURI may be a full data URI or a bare
// base64 payload.
type VisionAnalyzer interface {
	Analyze(ctx context.Context, imageDataURI string, mode domain.Mode) (*domain.Analysis, error)
}

// PromptBuilder renders the instruction text for a mode.
type PromptBuilder interface {
	Build(mode domain.Mode) (string, error)
}
