package taxonomy

import "strings"

// synonyms maps colloquial search words onto the canonical vocabulary used
// in listing names and category slugs. Substitution happens before matching
// and before highlighting, so the highlighted term is the substituted one.
var synonyms = map[string]string{
	"coffee":       "cafe",
	"coffeeshop":   "cafe",
	"gym":          "fitness",
	"workout":      "fitness",
	"haircut":      "hair-salon",
	"barber":       "barbershop",
	"vet":          "veterinarian",
	"mechanic":     "auto-repair",
	"groomer":      "pet-grooming",
	"masseuse":     "massage",
	"exterminator": "pest-control",
}

// Substitute returns the canonical form of a single lowercase word, or the
// word itself when no synonym applies.
func Substitute(word string) string {
	if canonical, ok := synonyms[word]; ok {
		return canonical
	}
	return word
}

// ExpandQuery rewrites each word of a free-text search through the synonym
// table. Input casing is discarded; matching downstream is case-insensitive.
func ExpandQuery(q string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(q)))
	if len(fields) == 0 {
		return ""
	}
	for i, f := range fields {
		fields[i] = Substitute(f)
	}
	return strings.Join(fields, " ")
}
