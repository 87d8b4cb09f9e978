package ctc

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/testutil"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const propertySymbols = "-abcd"

// randomDecode decodes a random matrix and returns its rows with the result.
func randomDecode(seed int64, steps, cols, beamSize int) ([][]float32, *Result, error) {
	rng := rand.New(rand.NewSource(seed))
	rows := testutil.RandomRows(rng, steps, cols)
	alpha, err := alphabet.Parse(propertySymbols[:cols])
	if err != nil {
		return nil, nil, err
	}
	m, err := NewMatrix(rows)
	if err != nil {
		return nil, nil, err
	}
	defer m.Release()
	opts := DefaultOptions()
	opts.BeamSize = beamSize
	res, err := BeamSearch(m, alpha, opts)
	return rows, res, err
}

// exhaustiveLabellings sums the probability of every alignment path per
// collapsed labelling.
func exhaustiveLabellings(rows [][]float32, symbols string) map[string]float64 {
	out := make(map[string]float64)
	cols := len(rows[0])
	path := make([]int, len(rows))
	var walk func(t int, p float64)
	walk = func(t int, p float64) {
		if t == len(rows) {
			var sb strings.Builder
			prev := -1
			for _, c := range path {
				if c != prev && c != 0 {
					sb.WriteByte(symbols[c])
				}
				prev = c
			}
			out[sb.String()] += p
			return
		}
		for c := range cols {
			path[t] = c
			walk(t+1, p*float64(rows[t][c]))
		}
	}
	walk(0, 1)
	return out
}

func TestBeamSearch_MatchesExhaustiveEnumeration(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("unbounded beam scores equal exact labelling probabilities", prop.ForAll(
		func(seed int64, steps, cols int) bool {
			rows, res, err := randomDecode(seed, steps, cols, 1000)
			if err != nil {
				return false
			}
			exact := exhaustiveLabellings(rows, propertySymbols)
			best := 0.0
			for _, p := range exact {
				best = math.Max(best, p)
			}
			// Every non-empty labelling survives an unbounded beam.
			if res.Len() != len(exact)-1 {
				return false
			}
			for i, seq := range res.Sequences {
				want := exact[seq] / best
				if math.Abs(float64(res.Scores[i])-want) > 1e-4 {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 4),
		gen.IntRange(2, 4),
	))

	properties.TestingRun(t)
}

func TestBeamSearch_ResultInvariants(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("scores ordered, bounded and unique", prop.ForAll(
		func(seed int64, steps, cols, beamSize int) bool {
			_, res, err := randomDecode(seed, steps, cols, beamSize)
			if err != nil {
				return false
			}
			if res.Len() > beamSize {
				return false
			}
			seen := make(map[string]bool, res.Len())
			for i, s := range res.Scores {
				if !(s > 0 && s <= 1) {
					return false
				}
				if i > 0 && s > res.Scores[i-1] {
					return false
				}
				if seen[res.Sequences[i]] {
					return false
				}
				seen[res.Sequences[i]] = true
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 30),
		gen.IntRange(2, 5),
		gen.IntRange(1, 20),
	))

	properties.Property("emission timesteps strictly increase", prop.ForAll(
		func(seed int64, steps, cols, beamSize int) bool {
			_, res, err := randomDecode(seed, steps, cols, beamSize)
			if err != nil {
				return false
			}
			for i, times := range res.Timesteps {
				if len(times) != len(res.Labels[i]) || len(times) == 0 || len(times) > steps {
					return false
				}
				for k, tm := range times {
					if tm < 0 || tm >= steps || (k > 0 && tm <= times[k-1]) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 30),
		gen.IntRange(2, 5),
		gen.IntRange(1, 20),
	))

	properties.Property("best sequence scores exactly one unless the empty labelling wins", prop.ForAll(
		func(seed int64, steps, cols int) bool {
			rows, res, err := randomDecode(seed, steps, cols, 1000)
			if err != nil {
				return false
			}
			if res.Len() == 0 {
				return true
			}
			exact := exhaustiveLabellings(rows, propertySymbols)
			emptyWins := true
			for seq, p := range exact {
				if seq != "" && p > exact[""] {
					emptyWins = false
				}
			}
			return emptyWins || res.Scores[0] == 1
		},
		gen.Int64(),
		gen.IntRange(1, 4),
		gen.IntRange(2, 4),
	))

	properties.TestingRun(t)
}
