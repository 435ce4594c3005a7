package rank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nearbyapp/nearby-server/internal/domain"
	"github.com/nearbyapp/nearby-server/internal/taxonomy"
)

func TestHighlightCaseInsensitive(t *testing.T) {
	assert.Equal(t, "Corner <mark>Cafe</mark>", Highlight("Corner Cafe", "cafe"))
	assert.Equal(t, "<mark>CAFE</mark> corner <mark>cafe</mark>", Highlight("CAFE corner cafe", "cafe"))
	assert.Equal(t, "Corner Cafe", Highlight("Corner Cafe", "pizza"))
	assert.Equal(t, "Corner Cafe", Highlight("Corner Cafe", ""))
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x", 100) + " great cafe vibes " + strings.Repeat("y", 100)
	s := Snippet(long, "cafe")
	assert.Contains(t, s, "<mark>cafe</mark>")
	assert.True(t, strings.HasPrefix(s, "..."))
	assert.True(t, strings.HasSuffix(s, "..."))

	assert.Empty(t, Snippet("no match here", "cafe"))
	assert.Empty(t, Snippet("", "cafe"))
}

func TestAttachHighlightsAfterSynonymSubstitution(t *testing.T) {
	// A "coffee" search is substituted to "cafe" before matching, so the
	// highlighted term in results is "cafe".
	term := taxonomy.ExpandQuery("coffee")
	ls := []domain.Listing{{ID: "biz-1", Name: "Corner Cafe", Description: "A cozy cafe downtown"}}

	AttachHighlights(ls, term)

	assert.Equal(t, "Corner <mark>Cafe</mark>", ls[0].HighlightedName)
	assert.Contains(t, ls[0].HighlightedSnippet, "<mark>cafe</mark>")
}
