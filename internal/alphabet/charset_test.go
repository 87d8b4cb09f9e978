package alphabet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDict(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadCharset(t *testing.T) {
	dir := t.TempDir()
	p := writeDict(t, dir, "dict.txt", "\uFEFFa\n  b \n\ne\u0301\nab\n")

	cs, err := LoadCharset(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "\u00e9", "ab"}, cs.Tokens)
	assert.Equal(t, 4, cs.Size())
}

func TestLoadCharset_Errors(t *testing.T) {
	_, err := LoadCharset("")
	assert.Error(t, err)

	_, err = LoadCharset(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	empty := writeDict(t, t.TempDir(), "empty.txt", "\n  \n")
	_, err = LoadCharset(empty)
	assert.ErrorContains(t, err, "empty")
}

func TestLoadCharsets_Merge(t *testing.T) {
	dir := t.TempDir()
	p1 := writeDict(t, dir, "a.txt", "x\ny\n")
	p2 := writeDict(t, dir, "b.txt", "y\nz\n")

	cs, err := LoadCharsets([]string{p1, " ", p2})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, cs.Tokens)

	_, err = LoadCharsets(nil)
	assert.Error(t, err)
	_, err = LoadCharsets([]string{" "})
	assert.Error(t, err)
}

func TestFromCharset(t *testing.T) {
	a, err := FromCharset(&Charset{Tokens: []string{"a", "b"}}, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultBlank, a.Blank())
	assert.Equal(t, 3, a.Len())

	a, err = FromCharset(&Charset{Tokens: []string{"a"}}, "<blank>")
	require.NoError(t, err)
	assert.Equal(t, "<blank>", a.Symbol(0))

	_, err = FromCharset(nil, "")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p1 := writeDict(t, dir, "a.txt", "A\nC\n")
	p2 := writeDict(t, dir, "b.txt", "G\nT\n")

	a, err := Load("", p1+","+p2, "")
	require.NoError(t, err)
	assert.Equal(t, "-ACGT", a.String())

	a, err = Load("_xy", p1, "")
	require.NoError(t, err)
	assert.Equal(t, "_", a.Blank(), "inline alphabet wins")

	_, err = Load("", "", "")
	assert.Error(t, err)
}
