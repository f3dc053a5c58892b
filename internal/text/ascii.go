// Package text normalizes free text coming from the reference feed into the
// ASCII subset stored in designated document fields.
package text

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/packsync/pkg/errors"
)

// punctuation maps typographic characters the feed uses to their ASCII
// counterparts.
var punctuation = strings.NewReplacer(
	"\u2018", "'",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2013", "-",
	"\u2014", "-",
	"\u2026", "...",
	"\u00a0", " ",
)

// spacing repairs formatting errors around punctuation in feed text.
var spacing = strings.NewReplacer(
	" ,", ",",
	" '", "'",
)

// ASCII folds s to ASCII: typographic punctuation is replaced, combining
// marks are stripped after decomposition, and stray spaces before commas
// and apostrophes are removed. Any character that still falls outside
// ASCII is reported as a ValidationError.
func ASCII(s string) (string, error) {
	s = punctuation.Replace(s)
	s = spacing.Replace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return "", errors.NewValidationError("text", s, err.Error())
	}

	for i, r := range out {
		if r >= utf8.RuneSelf {
			return "", errors.NewValidationError("text", s,
				fmt.Sprintf("non-ASCII character %q at offset %d", r, i))
		}
	}
	return out, nil
}

// IsASCII reports whether s contains only ASCII characters.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// CollapseSpaces trims s, collapses runs of spaces and removes the space
// the feed leaves before closing parentheses.
func CollapseSpaces(s string) string {
	s = strings.TrimSpace(s)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.ReplaceAll(s, " )", ")")
}
