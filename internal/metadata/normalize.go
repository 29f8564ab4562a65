package metadata

import (
	"regexp"
	"strings"
)

var (
	bracketedRe  = regexp.MustCompile(`[\(\[\{].*?[\)\]\}]`)
	noiseRe      = regexp.MustCompile(`(?i)official video|lyrics|audio|mv|music video|hd|4k|ncs|copyright free|music`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanTitle turns a raw page title into a catalog search query: content
// after a "|" separator is dropped, bracketed segments and common noise
// tokens are stripped, dashes become spaces and whitespace is collapsed.
func CleanTitle(raw string) string {
	clean, _, _ := strings.Cut(raw, "|")
	clean = bracketedRe.ReplaceAllString(clean, "")
	clean = noiseRe.ReplaceAllString(clean, "")
	clean = strings.ReplaceAll(clean, "-", " ")
	clean = whitespaceRe.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}
