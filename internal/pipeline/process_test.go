package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, alpha string, mutate func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg, testAlphabet(t, alpha))
	require.NoError(t, err)
	return p
}

func TestProcessRows_ACGT(t *testing.T) {
	p := newTestPipeline(t, "-ACGT", nil)
	rows := testutil.OneHotRows(5, testutil.Path("-ACGT", "A_CC_G_T"))

	res, err := p.ProcessRows(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACGT"}, res.Texts())
	assert.Equal(t, []float32{1}, res.Scores())
	assert.Equal(t, []int{0, 2, 5, 7}, res.Sequences[0].Timesteps)
	assert.Equal(t, 8, res.Timesteps)
	assert.Equal(t, 5, res.Classes)
	assert.False(t, res.Normalized)
	assert.NoError(t, ValidateDecodeResult(res))
	assert.GreaterOrEqual(t, res.Processing.TotalNs, res.Processing.DecodeNs)
}

func TestProcessRows_Logits(t *testing.T) {
	p := newTestPipeline(t, "-ab", nil)
	rows := [][]float32{{-1, 4, -1}, {5, -2, -2}, {-1, -1, 6}}

	res, err := p.ProcessRows(context.Background(), rows)
	require.NoError(t, err)
	assert.True(t, res.Normalized)
	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, "ab", best.Text)
	assert.NoError(t, ValidateDecodeResult(res))
}

func TestProcessRows_TopKAndGreedy(t *testing.T) {
	p := newTestPipeline(t, "-A", func(c *Config) {
		c.TopK = 2
		c.CompareGreedy = true
	})
	rows := testutil.DominantRows(2, 0.9, testutil.Path("-A", "_A_A_"))

	res, err := p.ProcessRows(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "A"}, res.Texts())
	require.NotNil(t, res.Greedy)
	assert.Equal(t, "AA", res.Greedy.Text)
	assert.True(t, res.Greedy.AgreesWithBeam)
}

func TestProcessRows_CleanText(t *testing.T) {
	p := newTestPipeline(t, "-a ", func(c *Config) { c.CleanText = true })
	rows := testutil.OneHotRows(3, []int{2, 2, 0, 2, 1, 2})

	res, err := p.ProcessRows(context.Background(), rows)
	require.NoError(t, err)
	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, "a", best.Text)
	assert.Equal(t, "  a ", best.Raw)
}

func TestProcessRows_Errors(t *testing.T) {
	p := newTestPipeline(t, "-ab", nil)
	ctx := context.Background()

	_, err := p.ProcessRows(ctx, [][]float32{{0.5, 0.5}})
	assert.ErrorIs(t, err, ctc.ErrInvalidInput)

	_, err = p.ProcessRows(ctx, [][]float32{{0.5, 0.5, 0}, {0, 0, 0}})
	assert.ErrorIs(t, err, ctc.ErrBeamExhausted)

	nan := float32(math.NaN())
	_, err = p.ProcessRows(ctx, [][]float32{{nan, 0.5, 0.5}})
	assert.ErrorIs(t, err, ctc.ErrIncomparableValues)

	stats := p.Stats()
	assert.Equal(t, int64(1), stats["errors_invalid_input"])
	assert.Equal(t, int64(1), stats["errors_beam_exhausted"])
	assert.Equal(t, int64(1), stats["errors_incomparable_values"])
}

func TestProcessMatrixContext_Cancelled(t *testing.T) {
	p := newTestPipeline(t, "-a", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ProcessRows(ctx, [][]float32{{0.5, 0.5}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessMatrix_EmptyMatrix(t *testing.T) {
	p := newTestPipeline(t, "-a", func(c *Config) { c.CompareGreedy = true })
	res, err := p.ProcessMatrix(ctc.Matrix{})
	require.NoError(t, err)
	assert.Empty(t, res.Sequences)
	assert.True(t, res.Greedy.AgreesWithBeam)
}

func TestProfilerSnapshot(t *testing.T) {
	p := newTestPipeline(t, "-a", nil)
	for range 3 {
		_, err := p.ProcessRows(context.Background(), [][]float32{{0.2, 0.8}})
		require.NoError(t, err)
	}
	stats := p.Stats()
	assert.Equal(t, int64(3), stats["decodes"])
	assert.Equal(t, int64(3), stats["timesteps"])
	assert.Contains(t, stats, "decode_ms_per_matrix")
}
