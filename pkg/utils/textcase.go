package utils

import (
	"strings"
	"unicode"
)

// TitleCase capitalizes the first letter of every alphabetic run and
// lowercases the rest. Any non-letter acts as a word boundary, so
// "o'neill medical" becomes "O'Neill Medical".
func TitleCase(s string) string {
	if s == "" {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}

	return b.String()
}

// TitleCaseAll title-cases every element of a slice in place and returns it
func TitleCaseAll(values []string) []string {
	for i, v := range values {
		values[i] = TitleCase(v)
	}
	return values
}
