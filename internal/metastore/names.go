package metastore

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// cleanName returns s in NFC form with control characters removed and
// surrounding space trimmed.
func cleanName(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
