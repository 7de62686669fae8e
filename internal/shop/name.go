package shop

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest item name accepted, in runes.
const MaxNameLength = 30

// NormalizeName returns the canonical form of an item name and validates it.
//
// Names are NFC normalized so that visually identical names dedupe to the
// same item. A valid name is 1 to MaxNameLength letters or digits.
func NormalizeName(name string) (string, error) {
	n := norm.NFC.String(name)
	if n == "" {
		return "", InvalidArgument("validate name", "name is empty")
	}
	if utf8.RuneCountInString(n) > MaxNameLength {
		return "", InvalidArgument("validate name", fmt.Sprintf("name is longer than %d characters", MaxNameLength))
	}
	for _, r := range n {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", InvalidArgument("validate name", "name must be alphanumeric")
		}
	}
	return n, nil
}
