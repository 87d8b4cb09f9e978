package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls post-processing of decoded text.
type CleanOptions struct {
	NormalizeForm      string // "NFC" (default), "NFKC", "NFD", "NFKD", "none"
	CollapseWhitespace bool
	Trim               bool
	RemoveControlChars bool
	RemoveZeroWidth    bool
}

// DefaultCleanOptions returns the cleaning applied when CleanText is set.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFC",
		CollapseWhitespace: true,
		Trim:               true,
		RemoveControlChars: true,
		RemoveZeroWidth:    true,
	}
}

// PostProcessText normalizes and cleans a decoded string.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}
	if opts.RemoveZeroWidth || opts.RemoveControlChars {
		s = strings.Map(func(r rune) rune {
			if opts.RemoveZeroWidth && isZeroWidth(r) {
				return -1
			}
			if opts.RemoveControlChars && unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
				return -1
			}
			return r
		}, s)
	}
	switch strings.ToUpper(opts.NormalizeForm) {
	case "NFC", "":
		s = norm.NFC.String(s)
	case "NFKC":
		s = norm.NFKC.String(s)
	case "NFD":
		s = norm.NFD.String(s)
	case "NFKD":
		s = norm.NFKD.String(s)
	}
	if opts.CollapseWhitespace {
		s = wsRe.ReplaceAllString(s, " ")
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}

var wsRe = regexp.MustCompile(`\s+`)

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF':
		return true
	}
	return false
}
