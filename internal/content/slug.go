// Package content holds the pure helpers behind page identity and previews:
// slug derivation, excerpt extraction and markdown rendering.
package content

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	slugWhitespacePattern = regexp.MustCompile(`[\s\p{Z}]+`)
	slugInvalidPattern    = regexp.MustCompile(`[^a-z0-9-]`)
	slugHyphenRunPattern  = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a URL-safe identifier from a title. It returns the empty
// string when the title has no character in [a-z0-9] after normalisation.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = slugWhitespacePattern.ReplaceAllString(slug, "-")
	slug = slugInvalidPattern.ReplaceAllString(slug, "")
	slug = slugHyphenRunPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SlugExistsFunc reports whether a candidate slug is already taken.
type SlugExistsFunc func(candidate string) (bool, error)

// EnsureUniqueSlug returns base when it is free, otherwise the first free
// candidate among base-1, base-2, ...
//
// The check is advisory: a concurrent writer can claim the returned slug
// before it is inserted, so the store's unique index stays authoritative.
func EnsureUniqueSlug(base string, exists SlugExistsFunc) (string, error) {
	candidate := base
	for counter := 1; ; counter++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
	}
}
