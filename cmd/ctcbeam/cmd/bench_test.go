package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/benchmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallBench = []string{
	"bench", "--beam-sizes", "1,4", "--timesteps", "10", "--classes", "5",
	"--matrices", "2", "--iterations", "1", "--seed", "3",
}

func TestBenchCommand_Text(t *testing.T) {
	stdout, _, err := execute(t, smallBench...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Workload: 2 matrices of 10x5")
	assert.Contains(t, stdout, "BEAM")
}

func TestBenchCommand_JSONFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bench.json")
	_, _, err := execute(t, append(smallBench, "--format", "json", "--output", out)...)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report benchmark.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Entries, 2)
	assert.Equal(t, 4, report.Entries[1].BeamSize)
	assert.Equal(t, 2, report.Entries[0].Decodes)
}

func TestBenchCommand_InvalidOptions(t *testing.T) {
	_, _, err := execute(t, "bench", "--classes", "1")
	require.Error(t, err)
}
