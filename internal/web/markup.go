package web

import (
	"regexp"
	"strings"
)

var markupRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`__(.*?)__`), "$1"},
	{regexp.MustCompile(`_(.*?)_`), "$1"},
	// Heading markers never consume the line break that follows them.
	{regexp.MustCompile(`(?m)(^|[ \t]+)#+[ \t]*$`), ""},
	{regexp.MustCompile(`(?m)(^|\s)#+[ \t]+`), "$1"},
}

// StripMarkup removes Markdown emphasis, heading markers and backticks that
// models add despite being asked for plain text.
func StripMarkup(s string) string {
	for _, rule := range markupRules {
		s = rule.re.ReplaceAllString(s, rule.repl)
	}
	return strings.ReplaceAll(s, "`", "")
}
