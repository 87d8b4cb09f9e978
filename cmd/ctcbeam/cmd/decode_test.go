package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// abMatrix spells "AB" over the alphabet "-AB" with a blank between.
const abMatrix = `[[0.05, 0.9, 0.05], [0.9, 0.05, 0.05], [0.05, 0.05, 0.9]]`

func TestDecodeCommand_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.json", abMatrix)

	stdout, _, err := execute(t, "decode", path, "--alphabet", "-AB")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "AB\t"), lines[0])
	assert.Equal(t, "AB\t1.000000", lines[0])
}

func TestDecodeCommand_JSONWithGreedy(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.json", abMatrix)

	stdout, _, err := execute(t, "decode", path, "--alphabet", "-AB", "--format", "json", "--greedy", "--top-k", "2")
	require.NoError(t, err)

	var res pipeline.DecodeResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.LessOrEqual(t, len(res.Sequences), 2)
	assert.Equal(t, "AB", res.Sequences[0].Text)
	require.NotNil(t, res.Greedy)
	assert.Equal(t, "AB", res.Greedy.Text)
	assert.True(t, res.Greedy.AgreesWithBeam)
}

func TestDecodeCommand_Stdin(t *testing.T) {
	t.Chdir(t.TempDir())
	root := NewRootCommand()
	var out strings.Builder
	root.SetOut(&out)
	root.SetErr(&strings.Builder{})
	root.SetIn(strings.NewReader("0.9,0.1\n0.1,0.9\n"))
	root.SetArgs([]string{"decode", "-", "--alphabet", "-x", "--input-format", "csv"})
	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "x\t"), out.String())
}

func TestDecodeCommand_OutputAndHeatmap(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.json", abMatrix)
	outPath := filepath.Join(dir, "out.csv")
	heatPath := filepath.Join(dir, "heat.png")

	stdout, _, err := execute(t, "decode", path, "--alphabet", "-AB",
		"--format", "csv", "--output", outPath, "--heatmap", heatPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "rank,text,score,timesteps\n1,AB,"))

	info, err := os.Stat(heatPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDecodeCommand_Dictionary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "m.json", abMatrix)
	dict := writeFile(t, dir, "dict.txt", "A\nB\n")

	stdout, _, err := execute(t, "decode", path, "--dict", dict)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "AB\t"))
}

func TestDecodeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "m.json", abMatrix)
	exhausted := writeFile(t, dir, "zero.json", `[[0.5, 0.5, 0], [0, 0, 0]]`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing alphabet", []string{"decode", good}, "either an alphabet or a dictionary path is required"},
		{"missing file", []string{"decode", filepath.Join(dir, "nope.json"), "--alphabet", "-AB"}, "nope.json"},
		{"width mismatch", []string{"decode", good, "--alphabet", "-A"}, "alphabet has 2 symbols"},
		{"exhausted beam", []string{"decode", exhausted, "--alphabet", "-AB"}, "decode failed"},
		{"bad beam size", []string{"decode", good, "--alphabet", "-AB", "--beam-size", "0"}, "invalid configuration"},
		{"bad format", []string{"decode", good, "--alphabet", "-AB", "--format", "xml"}, "invalid configuration"},
		{"missing model", []string{"decode", good, "--alphabet", "-AB", "--model", filepath.Join(dir, "m.onnx")}, "failed to load model"},
		{"no args", []string{"decode"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHeatmapPath(t *testing.T) {
	assert.Equal(t, "out/heat.png", heatmapPath("out/heat.png", 0, 1))
	assert.Equal(t, "out/heat_2.png", heatmapPath("out/heat.png", 2, 3))
}

func TestFormatResults_Multiple(t *testing.T) {
	results := []*pipeline.DecodeResult{
		{Sequences: []pipeline.Sequence{{Text: "a", Score: 1}}},
		{Sequences: []pipeline.Sequence{{Text: "b", Score: 1}}},
	}
	out, err := formatResults(results, "text")
	require.NoError(t, err)
	assert.Equal(t, "# item 0\na\t1.000000\n# item 1\nb\t1.000000\n", out)
}
