package relay

import (
	"regexp"
	"strings"
)

const (
	// CharacterLimit is the destination platform's post length budget.
	CharacterLimit = 300

	truncationMarker = "..."
)

// shortLinkPattern matches the source platform's URL shortener links, which
// carry no information worth relaying once the expanded URL is known.
var shortLinkPattern = regexp.MustCompile(`https://t\.co/[a-zA-Z0-9]+`)

// stripShortLinks removes every shortened link from text and trims the
// surrounding whitespace. The length check runs on this form, not the raw
// text.
func stripShortLinks(text string) string {
	return strings.TrimSpace(shortLinkPattern.ReplaceAllString(text, ""))
}

// SanitizeText strips every shortened link from text and enforces the
// destination character limit. When the stripped text exceeds the limit, the
// first 297 runes are kept, trailing whitespace trimmed, and "..." appended.
func SanitizeText(text string) string {
	clean := stripShortLinks(text)

	runes := []rune(clean)
	if len(runes) <= CharacterLimit {
		return clean
	}
	head := strings.TrimRight(string(runes[:CharacterLimit-len(truncationMarker)]), " \t\n\r")
	return head + truncationMarker
}

// RewriteAttribution redirects source-platform campaign attribution to the
// destination platform. URLs without the token pass through unchanged, as
// does an empty URL.
func RewriteAttribution(url string) string {
	if url == "" {
		return url
	}
	return strings.ReplaceAll(url, "utm_source=twitter", "utm_source=bluesky")
}
