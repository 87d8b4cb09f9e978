// Package alphabet maps probability-matrix columns to output symbols.
//
// Column 0 is always the CTC blank; column i (i >= 1) emits Symbol(i).
package alphabet

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultBlank is the blank symbol prepended to dictionaries that lack one.
const DefaultBlank = "-"

// Alphabet is an ordered, immutable symbol table whose first entry is the blank.
type Alphabet struct {
	symbols []string
	index   map[string]int
	maxLen  int
}

// New builds an alphabet from symbols, the first of which is the blank.
// Symbols are stored in NFC. Duplicate symbols are allowed; Index reports the
// first occurrence.
func New(symbols []string) (*Alphabet, error) {
	if len(symbols) == 0 {
		return nil, errors.New("alphabet must contain at least the blank symbol")
	}
	a := &Alphabet{
		symbols: make([]string, len(symbols)),
		index:   make(map[string]int, len(symbols)),
	}
	for i, s := range symbols {
		s = norm.NFC.String(s)
		a.symbols[i] = s
		if i > 0 && s == "" {
			return nil, fmt.Errorf("symbol %d is empty", i)
		}
		if _, ok := a.index[s]; !ok {
			a.index[s] = i
		}
		if n := utf8.RuneCountInString(s); n > a.maxLen {
			a.maxLen = n
		}
	}
	return a, nil
}

// Parse splits s into one symbol per rune; the first rune is the blank.
// "-ACGT" yields blank "-" and labels A, C, G, T. Each rune becomes its own
// symbol before normalization, so a decomposed "A\u030A" stays two columns.
func Parse(s string) (*Alphabet, error) {
	if s == "" {
		return nil, errors.New("alphabet string is empty")
	}
	if !utf8.ValidString(s) {
		return nil, errors.New("alphabet string is not valid UTF-8")
	}
	symbols := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		symbols = append(symbols, string(r))
	}
	return New(symbols)
}

// Len returns the number of symbols including the blank.
func (a *Alphabet) Len() int { return len(a.symbols) }

// Symbol returns the symbol at column i, or "" when i is out of range.
func (a *Alphabet) Symbol(i int) string {
	if i < 0 || i >= len(a.symbols) {
		return ""
	}
	return a.symbols[i]
}

// Blank returns the blank symbol.
func (a *Alphabet) Blank() string { return a.symbols[0] }

// Labels returns the non-blank symbols in column order.
func (a *Alphabet) Labels() []string { return append([]string(nil), a.symbols[1:]...) }

// Index returns the column of sym, or -1. sym is compared in NFC.
func (a *Alphabet) Index(sym string) int {
	if !norm.NFC.IsNormalString(sym) {
		sym = norm.NFC.String(sym)
	}
	if i, ok := a.index[sym]; ok {
		return i
	}
	return -1
}

// String concatenates all symbols.
func (a *Alphabet) String() string { return strings.Join(a.symbols, "") }

// Encode splits text into label indices (column minus one) using longest
// symbol match. The blank never matches.
func (a *Alphabet) Encode(text string) ([]int, error) {
	text = norm.NFC.String(text)
	var out []int
	for len(text) > 0 {
		matched := false
		for n := min(a.maxLen, utf8.RuneCountInString(text)); n > 0; n-- {
			prefix := runePrefix(text, n)
			if i := a.Index(prefix); i > 0 {
				out = append(out, i-1)
				text = text[len(prefix):]
				matched = true
				break
			}
		}
		if !matched {
			r, _ := utf8.DecodeRuneInString(text)
			return nil, fmt.Errorf("symbol %q is not in the alphabet", r)
		}
	}
	return out, nil
}

func runePrefix(s string, n int) string {
	i := 0
	for range n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
