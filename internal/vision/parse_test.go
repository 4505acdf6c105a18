package vision

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/shotcoach/internal/domain"
)

const validReply = `{
  "estimatedSettings": {
    "aperture": "f/1.8",
    "shutterSpeed": "1/250",
    "iso": "ISO 200",
    "mode": "Aperture priority (Av)",
    "whiteBalance": "Shade",
    "wbShift": "A2, G1"
  },
  "r50Guide": "Set the mode dial to Av and turn the main dial to f/1.8.",
  "tips": ["Shoot during golden hour.", "Use the RF 50mm f/1.8 STM."]
}`

func TestParseResponse(t *testing.T) {
	want := &domain.Analysis{
		EstimatedSettings: domain.EstimatedSettings{
			Aperture:     "f/1.8",
			ShutterSpeed: "1/250",
			ISO:          "ISO 200",
			Mode:         "Aperture priority (Av)",
			WhiteBalance: "Shade",
			WBShift:      "A2, G1",
		},
		Guide: "Set the mode dial to Av and turn the main dial to f/1.8.",
		Tips:  []string{"Shoot during golden hour.", "Use the RF 50mm f/1.8 STM."},
	}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain json", raw: validReply},
		{name: "fenced json", raw: "```json\n" + validReply + "\n```"},
		{name: "bare fence", raw: "```\n" + validReply + "```"},
		{name: "surrounding whitespace", raw: "\n\n  " + validReply + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseResponseEmpty(t *testing.T) {
	for _, raw := range []string{"", "   \n", "```json\n```"} {
		_, err := ParseResponse(raw)
		assert.ErrorIs(t, err, ErrNoResponse)
	}
}

func TestParseResponseInvalidJSON(t *testing.T) {
	_, err := ParseResponse(`{"estimatedSettings": {"aperture": "f/2.8",`)
	require.Error(t, err)

	var syntaxErr *json.SyntaxError
	assert.True(t, errors.As(err, &syntaxErr) || err.Error() == "unexpected end of JSON input", err.Error())
}

func TestParseResponseSchemaViolation(t *testing.T) {
	_, err := ParseResponse(`{"estimatedSettings": {"aperture": "f/2.8"}, "r50Guide": "x", "tips": ["y"]}`)
	assert.ErrorIs(t, err, domain.ErrInvalidAnalysis)
}
