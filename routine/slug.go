package routine

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugify converts a routine name into a URL-safe slug: lowercase
// letters and digits with single-hyphen separators.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// DedupeSlug returns slug unchanged if it is not taken, otherwise the
// first free variant with a numeric suffix: slug-2, slug-3, ...
func DedupeSlug(slug string, taken func(string) bool) string {
	if !taken(slug) {
		return slug
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", slug, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
