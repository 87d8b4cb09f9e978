package ctc

import "github.com/MeKo-Tech/ctcbeam/internal/alphabet"

// Decode runs a beam search over rows using an alphabet given as a string whose
// first rune is the blank. It returns the decoded sequences and their scores,
// best first.
func Decode(rows [][]float32, alphabetStr string, beamSize int) ([]string, []float32, error) {
	alpha, err := alphabet.Parse(alphabetStr)
	if err != nil {
		return nil, nil, invalidInput("%v", err)
	}
	m, err := NewMatrix(rows)
	if err != nil {
		return nil, nil, err
	}
	defer m.Release()

	opts := DefaultOptions()
	opts.BeamSize = beamSize
	res, err := BeamSearch(m, alpha, opts)
	if err != nil {
		return nil, nil, err
	}
	return res.Sequences, res.Scores, nil
}
