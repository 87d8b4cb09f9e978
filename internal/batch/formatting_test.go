package batch

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	return &Result{
		Results: []*pipeline.DecodeResult{
			{Sequences: []pipeline.Sequence{
				{Text: "AC", Score: 1, Labels: []int{0, 1}, Timesteps: []int{0, 2}},
				{Text: "A", Score: 0.25, Labels: []int{0}, Timesteps: []int{0}},
			}},
			nil,
		},
		Paths:       []string{"one.json", "two.json"},
		Failures:    []FileError{{Path: "two.json", Error: "boom", Kind: "beam_exhausted"}},
		Duration:    2 * time.Second,
		WorkerCount: 1,
	}
}

func TestFormatText(t *testing.T) {
	out, err := sampleResult().FormatResults("text")
	require.NoError(t, err)
	assert.Equal(t, "# one.json\nAC\t1.000000\nA\t0.250000\n\n# two.json\n# error: boom\n", out)
}

func TestFormatCSV(t *testing.T) {
	out, err := sampleResult().FormatResults("csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"file,rank,text,score", "one.json,0,AC,1.000000", "one.json,1,A,0.250000"}, lines)
}

func TestFormatJSONAndYAML(t *testing.T) {
	r := sampleResult()

	out, err := r.FormatResults("json")
	require.NoError(t, err)
	var doc batchDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "AC", doc.Files[0].Result.Sequences[0].Text)
	assert.Equal(t, "boom", doc.Files[1].Error)
	assert.Equal(t, 1, doc.Stats.Failed)

	out, err = r.FormatResults("yaml")
	require.NoError(t, err)
	var ydoc batchDocument
	require.NoError(t, yaml.Unmarshal([]byte(out), &ydoc))
	assert.Equal(t, "two.json", ydoc.Files[1].File)
	assert.Nil(t, ydoc.Files[1].Result)
}

func TestFormatUnknown(t *testing.T) {
	_, err := sampleResult().FormatResults("xml")
	assert.EqualError(t, err, "unsupported format: xml")
}

func TestSaveResults(t *testing.T) {
	r := sampleResult()

	var stdout bytes.Buffer
	require.NoError(t, r.SaveResults(&stdout, "csv", "", false))
	assert.True(t, strings.HasPrefix(stdout.String(), "file,rank"))

	stdout.Reset()
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, r.SaveResults(&stdout, "text", path, false))
	assert.Equal(t, "Results written to "+path+"\n", stdout.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# one.json")

	stdout.Reset()
	require.NoError(t, r.SaveResults(&stdout, "text", path, true))
	assert.Empty(t, stdout.String())
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	sampleResult().PrintStats(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "Total files: 2")
	assert.Contains(t, out, "Processed: 1")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Throughput: 0.5 matrices/sec")

	buf.Reset()
	sampleResult().PrintStats(&buf, true)
	assert.Empty(t, buf.String())
}
