package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mode selects what the model is asked to do with a photo.
type Mode string

const (
	// ModeReplicate asks how to reproduce the look of the photo.
	ModeReplicate Mode = "replicate"
	// ModeOptimize asks what went wrong and how to re-shoot it better.
	ModeOptimize Mode = "optimize"
)

var ErrUnknownMode = errors.New("unknown analysis mode")

// Modes lists the supported modes in display order.
func Modes() []Mode {
	return []Mode{ModeReplicate, ModeOptimize}
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeReplicate, ModeOptimize:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

type EstimatedSettings struct {
	Aperture     string `json:"aperture" validate:"required"`
	ShutterSpeed string `json:"shutterSpeed" validate:"required"`
	ISO          string `json:"iso" validate:"required"`
	Mode         string `json:"mode" validate:"required"`
	WhiteBalance string `json:"whiteBalance" validate:"required"`
	WBShift      string `json:"wbShift" validate:"required"`
}

// Analysis is the model's answer for one photo. The JSON shape is the
// contract the prompt asks the model to follow.
type Analysis struct {
	EstimatedSettings EstimatedSettings `json:"estimatedSettings"`
	Guide             string            `json:"r50Guide" validate:"required"`
	Tips              []string          `json:"tips" validate:"min=1,dive,required"`
}

var ErrInvalidAnalysis = errors.New("analysis does not match schema")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every field the views display was filled in.
func (a *Analysis) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}
	return nil
}
