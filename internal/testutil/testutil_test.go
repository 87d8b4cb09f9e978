package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectRoot(t *testing.T) {
	root, err := ProjectRoot()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "go.mod"))
	assert.DirExists(t, filepath.Join(root, "internal", "ctc"))
}

func TestTempFile(t *testing.T) {
	path := TempFile(t, "m.json", "[[1]]")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[[1]]", string(data))
}

func TestPathAndRows(t *testing.T) {
	path := Path("-AB", "A_B-")
	assert.Equal(t, []int{1, 0, 2, 0}, path)

	rows := OneHotRows(3, path)
	require.Len(t, rows, 4)
	assert.Equal(t, []float32{0, 1, 0}, rows[0])

	dom := DominantRows(3, 0.8, []int{2})
	assert.InDelta(t, 0.8, dom[0][2], 1e-6)
	assert.InDelta(t, 0.1, dom[0][0], 1e-6)
}
