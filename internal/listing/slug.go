// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package listing

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Slug converts text to an ASCII-only, filesystem-safe name. The text is
// NFKD-normalized so accented letters keep their base letter, remaining
// non-ASCII runes are dropped, every run of characters outside [A-Za-z0-9]
// becomes a single underscore, and leading and trailing underscores are
// trimmed. Slug(Slug(s)) == Slug(s).
func Slug(text string) string {
	decomposed := norm.NFKD.String(text)

	var b strings.Builder
	b.Grow(len(decomposed))
	for i := 0; i < len(decomposed); i++ {
		if c := decomposed[i]; c < 0x80 {
			b.WriteByte(c)
		}
	}

	return strings.Trim(nonAlnum.ReplaceAllString(b.String(), "_"), "_")
}
