// Package taxonomy defines the interest and subcategory hierarchy plus the
// query synonym table used by search normalization.
package taxonomy

import "strings"

// Node is one entry in the interest tree.
type Node struct {
	Name     string
	Slug     string
	Children []Node
}

// Interests is the default two-level hierarchy: parent interests with leaf
// subcategories. Listings store the leaf slug; feeds filter by parent.
var Interests = []Node{
	{
		Name: "Food & Drink",
		Slug: "food-drink",
		Children: []Node{
			{Name: "Restaurant", Slug: "restaurant"},
			{Name: "Cafe", Slug: "cafe"},
			{Name: "Bakery", Slug: "bakery"},
			{Name: "Bar", Slug: "bar"},
			{Name: "Food Truck", Slug: "food-truck"},
			{Name: "Juice Bar", Slug: "juice-bar"},
		},
	},
	{
		Name: "Health & Wellness",
		Slug: "health-wellness",
		Children: []Node{
			{Name: "Fitness Studio", Slug: "fitness"},
			{Name: "Yoga Studio", Slug: "yoga"},
			{Name: "Spa", Slug: "spa"},
			{Name: "Massage Therapy", Slug: "massage"},
			{Name: "Nutritionist", Slug: "nutritionist"},
			{Name: "Chiropractor", Slug: "chiropractor"},
		},
	},
	{
		Name: "Beauty & Care",
		Slug: "beauty-care",
		Children: []Node{
			{Name: "Hair Salon", Slug: "hair-salon"},
			{Name: "Barbershop", Slug: "barbershop"},
			{Name: "Nail Salon", Slug: "nail-salon"},
			{Name: "Skincare Clinic", Slug: "skincare"},
			{Name: "Tattoo Studio", Slug: "tattoo"},
		},
	},
	{
		Name: "Home Services",
		Slug: "home-services",
		Children: []Node{
			{Name: "Plumber", Slug: "plumber"},
			{Name: "Electrician", Slug: "electrician"},
			{Name: "Cleaning Service", Slug: "cleaning"},
			{Name: "Landscaping", Slug: "landscaping"},
			{Name: "Handyman", Slug: "handyman"},
			{Name: "Pest Control", Slug: "pest-control"},
		},
	},
	{
		Name: "Auto & Transport",
		Slug: "auto-transport",
		Children: []Node{
			{Name: "Auto Repair", Slug: "auto-repair"},
			{Name: "Car Wash", Slug: "car-wash"},
			{Name: "Tire Shop", Slug: "tire-shop"},
			{Name: "Detailing", Slug: "detailing"},
		},
	},
	{
		Name: "Shopping & Retail",
		Slug: "shopping-retail",
		Children: []Node{
			{Name: "Boutique", Slug: "boutique"},
			{Name: "Bookstore", Slug: "bookstore"},
			{Name: "Florist", Slug: "florist"},
			{Name: "Thrift Store", Slug: "thrift-store"},
			{Name: "Gift Shop", Slug: "gift-shop"},
		},
	},
	{
		Name: "Pets",
		Slug: "pets",
		Children: []Node{
			{Name: "Veterinarian", Slug: "veterinarian"},
			{Name: "Pet Grooming", Slug: "pet-grooming"},
			{Name: "Pet Store", Slug: "pet-store"},
			{Name: "Dog Walking", Slug: "dog-walking"},
		},
	},
	{
		Name: "Education & Events",
		Slug: "education-events",
		Children: []Node{
			{Name: "Tutoring", Slug: "tutoring"},
			{Name: "Music Lessons", Slug: "music-lessons"},
			{Name: "Dance Studio", Slug: "dance-studio"},
			{Name: "Event Venue", Slug: "event-venue"},
			{Name: "Photography", Slug: "photography"},
		},
	},
}

var (
	parentBySub = map[string]string{}
	labelBySlug = map[string]string{}
	subsByOwner = map[string][]string{}
)

func init() {
	for _, parent := range Interests {
		labelBySlug[parent.Slug] = parent.Name
		for _, child := range parent.Children {
			labelBySlug[child.Slug] = child.Name
			parentBySub[child.Slug] = parent.Slug
			subsByOwner[parent.Slug] = append(subsByOwner[parent.Slug], child.Slug)
		}
	}
}

// ParentOf returns the parent interest slug for a leaf subcategory slug,
// or the input itself when it is already a parent. Unknown slugs return "".
func ParentOf(slug string) string {
	if p, ok := parentBySub[slug]; ok {
		return p
	}
	if _, ok := subsByOwner[slug]; ok {
		return slug
	}
	return ""
}

// LabelFor returns the display name for any known slug. Unknown slugs fall
// back to a title-cased rendering of the slug so no listing ever renders a
// generic "Miscellaneous" label when the slug itself is descriptive.
func LabelFor(slug string) string {
	if label, ok := labelBySlug[slug]; ok {
		return label
	}
	if slug == "" {
		return ""
	}
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ExpandInterests maps a mixed list of parent and leaf slugs to the full
// leaf set they cover. Parents expand to all their children; leaves pass
// through; unknown slugs are kept as-is so future taxonomy additions degrade
// gracefully. The result preserves first-seen order with duplicates dropped.
func ExpandInterests(slugs []string) []string {
	seen := make(map[string]bool, len(slugs))
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, slug := range slugs {
		if children, ok := subsByOwner[slug]; ok {
			for _, c := range children {
				add(c)
			}
			continue
		}
		add(slug)
	}
	return out
}

// IsLeaf reports whether slug is a known subcategory.
func IsLeaf(slug string) bool {
	_, ok := parentBySub[slug]
	return ok
}

// IsParent reports whether slug is a known parent interest.
func IsParent(slug string) bool {
	_, ok := subsByOwner[slug]
	return ok
}
