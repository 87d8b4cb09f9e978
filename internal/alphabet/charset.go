package alphabet

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Charset is a recognition character set loaded from a dictionary file.
// Tokens can be single Unicode characters or multi-codepoint strings. A
// dictionary never contains the blank; FromCharset adds it.
type Charset struct {
	Tokens []string
}

// processLine trims the line, drops a leading BOM and NFC-normalizes it.
func processLine(line string, lineNum int) string {
	line = strings.TrimSpace(line)
	if lineNum == 1 {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return norm.NFC.String(line)
}

// LoadCharset loads a dictionary file where each non-empty line is a token.
func LoadCharset(path string) (*Charset, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: user-provided dictionary file
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	tokens := make([]string, 0, 512)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := processLine(scanner.Text(), lineNum)
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return &Charset{Tokens: tokens}, nil
}

// LoadCharsets merges several dictionaries in order; the first occurrence of
// a token wins.
func LoadCharsets(paths []string) (*Charset, error) {
	if len(paths) == 0 {
		return nil, errors.New("no dictionary paths provided")
	}
	seen := make(map[string]struct{}, 1024)
	tokens := make([]string, 0, 1024)
	for _, p := range paths {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		cs, err := LoadCharset(p)
		if err != nil {
			return nil, err
		}
		for _, t := range cs.Tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil, errors.New("merged dictionary is empty")
	}
	return &Charset{Tokens: tokens}, nil
}

// Size returns the number of tokens in the charset.
func (c *Charset) Size() int { return len(c.Tokens) }

// FromCharset builds an alphabet whose blank is blank followed by the charset
// tokens. An empty blank uses DefaultBlank.
func FromCharset(cs *Charset, blank string) (*Alphabet, error) {
	if cs == nil {
		return nil, errors.New("nil charset")
	}
	if blank == "" {
		blank = DefaultBlank
	}
	symbols := make([]string, 0, len(cs.Tokens)+1)
	symbols = append(symbols, blank)
	symbols = append(symbols, cs.Tokens...)
	return New(symbols)
}

// Load resolves an alphabet from either an inline alphabet string or a
// comma-separated list of dictionary files. The inline string wins when both
// are given.
func Load(inline, dictPaths, blank string) (*Alphabet, error) {
	if inline != "" {
		return Parse(inline)
	}
	if dictPaths == "" {
		return nil, errors.New("either an alphabet or a dictionary path is required")
	}
	cs, err := LoadCharsets(strings.Split(dictPaths, ","))
	if err != nil {
		return nil, err
	}
	return FromCharset(cs, blank)
}
