package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Name derives the primary match key from an item name: NFC-normalized,
// lowercased, with every whitespace rune removed.
//
//	Name("Fire Bolt")     // "firebolt"
//	Name("  Magic\tMissile ") // "magicmissile"
func Name(itemName string) string {
	// A Caser is stateful and must not be shared between goroutines.
	lowered := cases.Lower(language.Und).String(norm.NFC.String(itemName))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lowered)
}
