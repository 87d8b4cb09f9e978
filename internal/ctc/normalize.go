package ctc

import (
	"fmt"
	"math"
)

// NormalizeMode selects how raw model output is turned into probabilities.
type NormalizeMode string

const (
	// NormalizeAuto applies softmax only to rows with values outside [0,1].
	NormalizeAuto NormalizeMode = "auto"
	// NormalizeAlways applies softmax to every row.
	NormalizeAlways NormalizeMode = "always"
	// NormalizeNever leaves the matrix untouched.
	NormalizeNever NormalizeMode = "never"
)

// ParseNormalizeMode validates a mode name; "" means auto.
func ParseNormalizeMode(s string) (NormalizeMode, error) {
	switch NormalizeMode(s) {
	case "", NormalizeAuto:
		return NormalizeAuto, nil
	case NormalizeAlways, NormalizeNever:
		return NormalizeMode(s), nil
	default:
		return "", fmt.Errorf("unknown normalize mode %q (want auto, always or never)", s)
	}
}

// LooksLikeProbabilities reports whether every value of row lies in [0,1].
// Rows need not sum to one.
func LooksLikeProbabilities(row []float32) bool {
	if len(row) == 0 {
		return false
	}
	for _, x := range row {
		if !(x >= 0 && x <= 1) {
			return false
		}
	}
	return true
}

// Normalize rewrites the rows of m in place according to mode. A row holding
// NaN comes out as NaN so that decoding reports it.
func Normalize(m Matrix, mode NormalizeMode) {
	if mode == NormalizeNever {
		return
	}
	for t := range m.Rows {
		row := m.Row(t)
		if mode == NormalizeAuto && LooksLikeProbabilities(row) {
			continue
		}
		softmax(row)
	}
}

// softmax computes a numerically stable softmax in place.
func softmax(row []float32) {
	if len(row) == 0 {
		return
	}
	maxV := math.Inf(-1)
	for _, x := range row {
		if v := float64(x); v > maxV {
			maxV = v
		}
	}
	if math.IsInf(maxV, 0) {
		return
	}
	var denom float64
	for _, x := range row {
		denom += math.Exp(float64(x) - maxV)
	}
	for i, x := range row {
		row[i] = float32(math.Exp(float64(x)-maxV) / denom)
	}
}
