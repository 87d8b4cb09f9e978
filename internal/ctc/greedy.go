package ctc

import "strings"

// GreedyResult holds the best-path decode of a matrix: the per-timestep argmax
// indices and probabilities, and the collapsed labelling.
type GreedyResult struct {
	Indices       []int
	Probs         []float64
	Collapsed     []int
	CollapsedProb []float64
	Text          string
	Confidence    float64
}

// argmax returns index of max value and the value.
func argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// Collapse removes repeated consecutive indices and blanks, returning the
// collapsed sequence and the probability of each kept index.
func Collapse(indices []int, probs []float64, blank int) ([]int, []float64) {
	outIdx := make([]int, 0, len(indices))
	outProb := make([]float64, 0, len(probs))
	prev := -1
	for i, idx := range indices {
		if idx == blank {
			prev = idx
			continue
		}
		if idx == prev {
			continue
		}
		outIdx = append(outIdx, idx)
		if i < len(probs) {
			outProb = append(outProb, probs[i])
		} else {
			outProb = append(outProb, 0)
		}
		prev = idx
	}
	return outIdx, outProb
}

// GreedyDecode picks the most probable column at every timestep and collapses
// the path. It is the beam-size-one baseline that beam search is compared to.
func GreedyDecode(m Matrix, alphabet Alphabet) GreedyResult {
	indices := make([]int, m.Rows)
	probs := make([]float64, m.Rows)
	for t := range m.Rows {
		idx, p := argmax(m.Row(t))
		indices[t] = idx
		probs[t] = float64(p)
	}
	collIdx, collProb := Collapse(indices, probs, 0)

	var sb strings.Builder
	for _, idx := range collIdx {
		sb.WriteString(alphabet.Symbol(idx))
	}
	return GreedyResult{
		Indices:       indices,
		Probs:         probs,
		Collapsed:     collIdx,
		CollapsedProb: collProb,
		Text:          sb.String(),
		Confidence:    SequenceConfidence(collProb),
	}
}

// SequenceConfidence returns the average of per-character probabilities; 0 if empty.
func SequenceConfidence(charProbs []float64) float64 {
	if len(charProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range charProbs {
		s += p
	}
	return s / float64(len(charProbs))
}
