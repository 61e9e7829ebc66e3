package question

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize case-folds s, composes the result to NFC and trims surrounding and
// repeated inner whitespace.
func Normalize(s string) string {
	folded := norm.NFC.String(cases.Fold().String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// Matches reports whether answer equals want after normalization.
func Matches(answer, want string) bool {
	return Normalize(answer) == Normalize(want)
}
