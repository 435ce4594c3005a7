// Package util provides common utility functions.
package util

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, slashes, and dashes (word separators).
	wordSeparatorRe = regexp.MustCompile(`[\s_/-]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-safe slug. Word separators become
// dashes; remaining punctuation is removed, so an apostrophe joins its word
// instead of splitting it.
// "Joe's Pizza" -> "joes-pizza".
// "Café Olé" -> "cafe-ole".
// "Gym / Fitness" -> "gym-fitness".
func Slugify(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(s)

	// Remove non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))

	// Replace word separators with dashes.
	s = wordSeparatorRe.ReplaceAllString(s, "-")

	// Remove everything else that is not alphanumeric.
	s = nonAlphanumericRe.ReplaceAllString(s, "")

	// Collapse multiple dashes.
	s = multipleDashRe.ReplaceAllString(s, "-")

	// Trim leading/trailing dashes.
	s = strings.Trim(s, "-")

	return s
}

// NormalizeName canonicalizes a business name for duplicate detection.
// Lowercased, whitespace collapsed, punctuation stripped - so "Joe's Pizza"
// and "joes pizza" compare equal.
func NormalizeName(s string) string {
	return strings.ReplaceAll(Slugify(s), "-", " ")
}

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// UniqueSlug generates a slug from name, appending a numeric suffix
// (-2, -3, ...) until the result is unused.
func UniqueSlug(ctx context.Context, name string, exists SlugExistsFunc) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "business"
	}

	slug := base
	for n := 2; ; n++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
