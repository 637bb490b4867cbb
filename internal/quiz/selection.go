package quiz

import (
	"strings"
	"unicode"
)

// Selection is a set of option letters kept in canonical form: uppercase,
// no duplicates, A..D order. The zero value is the empty selection.
type Selection string

// ParseSelection accepts letters in any case or order, optionally separated
// by spaces, commas or semicolons ("ab", "B, a", "A;B").
func ParseSelection(raw string) (Selection, error) {
	var seen [len(Letters)]bool
	for _, r := range raw {
		if unicode.IsSpace(r) || r == ',' || r == ';' {
			continue
		}
		i := strings.IndexRune(Letters, unicode.ToUpper(r))
		if i < 0 {
			return "", errorf(ErrInvalidSelection, "unknown option %q", r)
		}
		seen[i] = true
	}
	var b strings.Builder
	for i, ok := range seen {
		if ok {
			b.WriteByte(Letters[i])
		}
	}
	return Selection(b.String()), nil
}

// SelectionOf builds a selection from individually submitted letters.
func SelectionOf(letters []string) (Selection, error) {
	return ParseSelection(strings.Join(letters, ","))
}

func (s Selection) Len() int { return len(s) }

func (s Selection) Has(letter byte) bool {
	return strings.IndexByte(string(s), letter) >= 0
}

func (s Selection) Letters() []string {
	out := make([]string, 0, len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, string(s[i]))
	}
	return out
}

func (s Selection) String() string { return string(s) }
