package domain

// UserPreferences is the stored personalization profile for one user.
// All three slices may be empty for a user who skipped onboarding.
type UserPreferences struct {
	UserID string

	// Interests are parent interest slugs picked during onboarding.
	Interests []string
	// Subcategories are leaf slugs the user drilled into.
	Subcategories []string
	// Dealbreakers are hard filters such as "verified_only",
	// "punctuality", "friendliness", "trustworthiness",
	// "cost_effectiveness" or "max_price:N".
	Dealbreakers []string
}

// HasAny reports whether the profile carries any signal at all.
// A feed request for a user without one is rejected, not silently generic.
func (p *UserPreferences) HasAny() bool {
	if p == nil {
		return false
	}
	return len(p.Interests) > 0 || len(p.Subcategories) > 0 || len(p.Dealbreakers) > 0
}
