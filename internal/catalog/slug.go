package catalog

import (
	"strings"
	"unicode"
)

// Slugify lowercases the name and collapses every non-alphanumeric run into
// a single hyphen. Non-ASCII letters pass through lowercased so Kazakh and
// Russian outlet names keep a readable slug.
func Slugify(name string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
