package triage

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"unicode"
)

// CleanTextLimit caps how much cleaned text flows into classification and
// summarization. Anything beyond it is noise for the heuristics and a cost
// for storage.
const CleanTextLimit = 20000

var (
	stripTags = bluemonday.StrictPolicy()

	// block-level tags become separators so "<p>a</p><p>b</p>" does not
	// collapse into "ab"
	blockTag = regexp.MustCompile(`(?i)<(?:/?(?:p|div|li|tr|table|h[1-6]|blockquote)|br\s*/?)[^>]*>`)

	quotedReplyMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?is)On .* wrote:.*`),
		regexp.MustCompile(`(?is)Em .* escreveu:.*`),
		regexp.MustCompile(`(?is)-----Original Message-----.*`),
		regexp.MustCompile(`(?is)\nDe: .*`),
	}

	whitespace = regexp.MustCompile(`\s+`)

	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// HTMLToText strips markup, scripts and styles from an HTML body, leaving
// plain text with whitespace separators where block elements were.
func HTMLToText(body string) string {
	if body == "" {
		return ""
	}
	spaced := blockTag.ReplaceAllString(body, " ")
	return html.UnescapeString(stripTags.Sanitize(spaced))
}

// StripQuotedReplies cuts everything from the first quoted-reply marker
// onwards. Both English and Portuguese client conventions are recognised.
func StripQuotedReplies(text string) string {
	for _, marker := range quotedReplyMarkers {
		text = marker.ReplaceAllString(text, "")
	}
	return text
}

// NormalizeWhitespace folds newlines and runs of whitespace into single
// spaces.
func NormalizeWhitespace(text string) string {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// CleanEmailText is the canonical preprocessing pipeline: quoted replies
// stripped, whitespace normalised, then capped at CleanTextLimit runes.
func CleanEmailText(raw string) string {
	cleaned := NormalizeWhitespace(StripQuotedReplies(raw))
	if r := []rune(cleaned); len(r) > CleanTextLimit {
		return string(r[:CleanTextLimit])
	}
	return cleaned
}

// Fold lowercases and removes diacritics so keyword matching treats
// "solicitação" and "solicitacao" alike.
func Fold(s string) string {
	folded, _, err := transform.String(deaccent, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
