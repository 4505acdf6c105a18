// Package imagedata turns uploaded image bytes into data URIs and back.
package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrNotImage is returned for uploads whose declared type is not image/*.
// Its message is shown to the user as is.
var ErrNotImage = errors.New("please upload an image file")

// DefaultMIME is assumed when a data URI carries no header.
const DefaultMIME = "image/jpeg"

var headerRegex = regexp.MustCompile(`^data:([^;,]+)(;[^,]*)?,`)

// Encode returns data as a base64 data URI. declaredType must start with
// "image/".
func Encode(data []byte, declaredType string) (string, error) {
	declaredType = strings.ToLower(strings.TrimSpace(declaredType))
	if !strings.HasPrefix(declaredType, "image/") {
		return "", ErrNotImage
	}
	return "data:" + declaredType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DeclaredType resolves the media type of an upload from its part header,
// falling back to content sniffing when the browser sent nothing useful.
func DeclaredType(headerType string, data []byte) string {
	mime := stripParams(headerType)
	if mime != "" && mime != "application/octet-stream" {
		return mime
	}
	if isWebP(data) {
		return "image/webp"
	}
	return stripParams(http.DetectContentType(data))
}

// Split separates a data URI into its media type and encoded payload.
// Input without a comma-delimited header is returned unchanged as the
// payload.
func Split(uri string) (mimeType, payload string) {
	idx := strings.IndexByte(uri, ',')
	if idx < 0 {
		return DefaultMIME, uri
	}
	mimeType = DefaultMIME
	if m := headerRegex.FindStringSubmatch(uri[:idx+1]); len(m) >= 2 {
		mimeType = m[1]
	}
	return mimeType, uri[idx+1:]
}

// Decode splits uri and base64-decodes the payload.
func Decode(uri string) (string, []byte, error) {
	mimeType, payload := Split(uri)
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return mimeType, data, nil
}

func stripParams(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8). The stdlib sniffer has no WebP signature.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}
