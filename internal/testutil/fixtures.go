package testutil

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"
)

// BlankRune marks a blank timestep in the path strings accepted by Path.
const BlankRune = '_'

// Path maps each rune of path to its column in alphabet, where alphabet is a
// string whose first rune is the blank. BlankRune and the alphabet's own blank
// both map to column 0. Unknown runes panic: fixtures are programmer input.
func Path(alphabet, path string) []int {
	cols := make(map[rune]int, utf8.RuneCountInString(alphabet))
	i := 0
	for _, r := range alphabet {
		if _, ok := cols[r]; !ok {
			cols[r] = i
		}
		i++
	}
	out := make([]int, 0, len(path))
	for _, r := range path {
		if r == BlankRune {
			out = append(out, 0)
			continue
		}
		c, ok := cols[r]
		if !ok {
			panic("testutil: rune " + string(r) + " not in alphabet " + alphabet)
		}
		out = append(out, c)
	}
	return out
}

// OneHotRows builds one row per entry of path with probability 1 on that
// column and 0 elsewhere.
func OneHotRows(cols int, path []int) [][]float32 {
	return DominantRows(cols, 1, path)
}

// DominantRows builds one row per entry of path where that column carries p
// and the remaining mass 1-p is shared evenly by the other columns.
func DominantRows(cols int, p float32, path []int) [][]float32 {
	rows := make([][]float32, len(path))
	rest := float32(0)
	if cols > 1 {
		rest = (1 - p) / float32(cols-1)
	}
	for t, c := range path {
		row := make([]float32, cols)
		for k := range row {
			row[k] = rest
		}
		row[c] = p
		rows[t] = row
	}
	return rows
}

// RandomRows returns rows of random probability distributions drawn from rng.
func RandomRows(rng *rand.Rand, rows, cols int) [][]float32 {
	out := make([][]float32, rows)
	for t := range out {
		row := make([]float32, cols)
		var sum float32
		for k := range row {
			row[k] = rng.Float32() + 1e-3
			sum += row[k]
		}
		for k := range row {
			row[k] /= sum
		}
		out[t] = row
	}
	return out
}

// WriteJSONMatrix writes rows as a JSON array of arrays into dir/name.
func WriteJSONMatrix(t *testing.T, dir, name string, rows [][]float32) string {
	t.Helper()
	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("marshal matrix: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
