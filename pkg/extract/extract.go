package extract

import (
	"strings"
)

const (
	// Fence is the markdown code fence marker that precedes the generated document.
	Fence = "```"
	// SuggestionsMarker separates the document body from the advisory tail.
	SuggestionsMarker = "Additional Suggestions"
)

// Content holds the primary document body and the optional suggestions block.
type Content struct {
	Body       string `json:"body"`
	Suggestion string `json:"suggestion"`
}

// HasSuggestion reports whether a non-blank suggestion was extracted.
func (c Content) HasSuggestion() (ok bool) {
	ok = strings.TrimSpace(c.Suggestion) != ""
	return ok
}

// Extract isolates the document body and suggestions from a raw assistant reply.
func Extract(raw string) (content Content) {
	if raw == "" {
		return content
	}

	// No fence means the whole reply is the document, untouched
	start := strings.Index(raw, Fence)
	if start < 0 {
		content.Body = raw
		return content
	}

	// Drop the fence and its language tag line
	rest := raw[start+len(Fence):]
	newline := strings.Index(rest, "\n")
	if newline < 0 {
		rest = ""
	} else {
		rest = rest[newline+1:]
	}

	parts := strings.SplitN(rest, SuggestionsMarker, 2)
	if len(parts) == 0 {
		content.Body = trimTrailing(strings.ReplaceAll(rest, SuggestionsMarker, ""), "#`-")
		return content
	}

	content.Body = trimTrailing(parts[0], "#`-")
	if len(parts) == 2 {
		content.Suggestion = trimTrailing(parts[1], "#")
	}

	return content
}

// trimTrailing trims whitespace, then repeatedly strips any trailing character in noise and retrims.
func trimTrailing(text, noise string) (trimmed string) {
	trimmed = strings.TrimSpace(text)
	for trimmed != "" && strings.ContainsRune(noise, rune(trimmed[len(trimmed)-1])) {
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}
	return trimmed
}
