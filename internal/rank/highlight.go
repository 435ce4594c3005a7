package rank

import (
	"strings"

	"github.com/nearbyapp/nearby-server/internal/domain"
)

const (
	markOpen  = "<mark>"
	markClose = "</mark>"
	// snippetRadius is how many characters of context surround a match.
	snippetRadius = 60
)

// AttachHighlights wraps case-insensitive occurrences of the search term in
// <mark> tags on each listing's name, and builds a highlighted snippet from
// the description. The term must already be synonym substituted, so a
// "coffee" query highlights "cafe" in the results.
func AttachHighlights(listings []domain.Listing, term string) {
	if term == "" {
		return
	}
	for i := range listings {
		l := &listings[i]
		l.HighlightedName = Highlight(l.Name, term)
		l.HighlightedSnippet = Snippet(l.Description, term)
	}
}

// Highlight wraps every case-insensitive occurrence of term in <mark> tags,
// preserving the original casing of the matched text.
func Highlight(text, term string) string {
	if text == "" || term == "" {
		return text
	}
	lower := strings.ToLower(text)
	term = strings.ToLower(term)

	var b strings.Builder
	start := 0
	for {
		idx := strings.Index(lower[start:], term)
		if idx < 0 {
			break
		}
		idx += start
		b.WriteString(text[start:idx])
		b.WriteString(markOpen)
		b.WriteString(text[idx : idx+len(term)])
		b.WriteString(markClose)
		start = idx + len(term)
	}
	if start == 0 {
		return text
	}
	b.WriteString(text[start:])
	return b.String()
}

// Snippet extracts a window of text around the first match and highlights
// the term within it. No match returns an empty snippet.
func Snippet(text, term string) string {
	if text == "" || term == "" {
		return ""
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(term))
	if idx < 0 {
		return ""
	}

	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + len(term) + snippetRadius
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return Highlight(snippet, term)
}
