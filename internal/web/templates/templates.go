// Package templates embeds the HTML page templates.
package templates

import "embed"

//go:embed base.html pages
var FS embed.FS
