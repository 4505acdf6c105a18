// Package prompt builds the instruction text sent alongside the photo.
//
// Each analysis mode maps to a template; all templates share one rule block
// that pins the output to plain text and to the JSON schema the vision
// package parses.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/vbonduro/shotcoach/internal/domain"
)

const (
	DefaultCamera   = "Canon EOS R50"
	DefaultSystem   = "APS-C, RF-S mount"
	DefaultLanguage = "English"
)

const replicateTemplate = `You are a professional photography tutor who knows the {{.Camera}} inside out.
Analyze the attached photo and write a detailed shooting guide for a beginner,
teaching them how to reproduce this photo with the {{.Camera}}.
Infer the capture settings the photographer most likely used (aperture,
shutter speed, ISO, shooting mode, white balance and white balance shift)
from the depth of field, motion, noise and colour of the image.`

const optimizeTemplate = `You are a professional photography tutor who knows the {{.Camera}} inside out.
Diagnose the attached photo like a critic: look for noise, under- or
over-exposure, white balance errors, missed focus or motion blur, and weak
composition. Then propose better settings for re-shooting the same scene with
the {{.Camera}} (aperture, shutter speed, ISO, shooting mode, white balance and
white balance shift), and explain what each change fixes.`

const rulesTemplate = `

Return the result as JSON that follows this schema exactly:
{
  "estimatedSettings": {
    "aperture": "aperture value, e.g. f/2.8",
    "shutterSpeed": "shutter speed, e.g. 1/500",
    "iso": "ISO value, e.g. ISO 400",
    "mode": "shooting mode, e.g. Aperture priority (Av) or Manual (M)",
    "whiteBalance": "white balance preset, e.g. Auto (ambience priority), Daylight, Shade, or a Kelvin value such as 5200K",
    "wbShift": "white balance shift as a coordinate pair on the {{.Camera}} grid: B (blue) / A (amber) and M (magenta) / G (green), e.g. 'A2, G1' (warmer, greener), 'B3, M2' (cooler, more magenta) or 'A0, G0' (no shift)"
  },
  "r50Guide": "a detailed step-by-step guide in plain text paragraphs explaining how to set these values on the {{.Camera}}, naming the physical buttons, dials and touchscreen menus",
  "tips": [
    "tip 1 in plain text",
    "tip 2 in plain text",
    "tip 3 in plain text"
  ]
}

Important rules:
1. All text must be plain text. Do not use any Markdown or markup symbols (no *, **, #, -, backticks or [] links).
2. wbShift must be a concrete coordinate pair such as "A2, G1", never a description.
3. Make every piece of advice specific to the {{.Camera}} ({{.System}}), its lenses and its controls.
4. Answer in {{.Language}}.
5. Output only the JSON object, with exactly the keys shown above.`

var templates = map[domain.Mode]string{
	domain.ModeReplicate: replicateTemplate,
	domain.ModeOptimize:  optimizeTemplate,
}

// Builder renders prompts for one camera and output language.
type Builder struct {
	Camera   string
	System   string
	Language string

	parsed map[domain.Mode]*template.Template
}

// New returns a Builder. Empty arguments fall back to the defaults.
func New(camera, system, language string) (*Builder, error) {
	b := &Builder{
		Camera:   orDefault(camera, DefaultCamera),
		System:   orDefault(system, DefaultSystem),
		Language: orDefault(language, DefaultLanguage),
		parsed:   make(map[domain.Mode]*template.Template, len(templates)),
	}
	for mode, body := range templates {
		tmpl, err := template.New(string(mode)).Parse(body + rulesTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt: %w", mode, err)
		}
		b.parsed[mode] = tmpl
	}
	return b, nil
}

// Build returns the full prompt for mode.
func (b *Builder) Build(mode domain.Mode) (string, error) {
	tmpl, ok := b.parsed[mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, b); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", mode, err)
	}
	return sb.String(), nil
}

var defaultBuilder = func() *Builder {
	b, err := New("", "", "")
	if err != nil {
		panic(err)
	}
	return b
}()

// Build renders mode with the default camera and language.
func Build(mode domain.Mode) (string, error) {
	return defaultBuilder.Build(mode)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
