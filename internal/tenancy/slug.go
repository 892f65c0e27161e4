package tenancy

import (
	"strings"
	"unicode"
)

// Slugify derives a URL-safe slug from a display name: lower-cased,
// non-alphanumeric runs collapsed to single dashes, trimmed.
func Slugify(name string) string {
	var b strings.Builder

	lastDash := true // suppress a leading dash

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)

			lastDash = false
		case !lastDash:
			b.WriteByte('-')

			lastDash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
