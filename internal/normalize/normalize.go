// Package normalize canonicalizes free-text fields from government CSV
// exports. The export tooling upstream is inconsistent about encoding,
// casing, and punctuation, so every text field goes through Clean before
// it is matched against a controlled vocabulary or used as a group key.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold decomposes compatibility variants, drops combining marks, and
// recomposes, so "Mahārāshtra" and "Maharashtra" normalize identically.
var fold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Clean normalizes a single text value: Unicode folding, lowercasing,
// replacing every rune that is not a letter or digit with a space, and
// collapsing whitespace runs. Clean is pure and idempotent; a missing
// value (empty string) stays empty.
func Clean(s string) string {
	s, _, _ = transform.String(fold, s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CleanAll normalizes a sequence of values, preserving length and order.
func CleanAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Clean(v)
	}
	return out
}

// Title renders an already-cleaned value in display title case. District
// names are not resolved against a master list, so this is the only
// canonicalization they get.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}
