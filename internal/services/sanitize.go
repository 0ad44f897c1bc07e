package services

import (
	"regexp"
	"strings"
)

var (
	mdHeaderRe     = regexp.MustCompile(`#+\s`)
	mdLinkRe       = regexp.MustCompile(`\[(.*?)\]\([^)]*\)`)
	mdEmphasisRe   = regexp.MustCompile("(\\*\\*|\\*|__|`)")
	hyphenBreakRe  = regexp.MustCompile(`-\n`)
	pageArtifactRe = regexp.MustCompile(`(?i)Page \d+ of \d+`)
	urlRe          = regexp.MustCompile(`https?://\S+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// SanitizeForSpeech strips markdown formatting and PDF artifacts that would
// sound wrong when read aloud: headers, link syntax, emphasis markers,
// hyphenated line breaks, "Page X of Y" footers and URLs.
func SanitizeForSpeech(text string) string {
	text = mdHeaderRe.ReplaceAllString(text, "")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = mdEmphasisRe.ReplaceAllString(text, "")
	text = hyphenBreakRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	text = pageArtifactRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
