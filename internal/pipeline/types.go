package pipeline

// Sequence is one decoded labelling.
type Sequence struct {
	Text string `json:"text" yaml:"text"`
	// Raw is the text before cleaning, set only when cleaning changed it.
	Raw   string  `json:"raw,omitempty" yaml:"raw,omitempty"`
	Score float32 `json:"score" yaml:"score"`
	// Labels are alphabet columns minus one; Timesteps the row at which each
	// label was first emitted.
	Labels    []int `json:"labels" yaml:"labels"`
	Timesteps []int `json:"timesteps" yaml:"timesteps"`
}

// GreedyResult is the best-path decode kept for comparison.
type GreedyResult struct {
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// AgreesWithBeam reports whether best path and beam search chose the same text.
	AgreesWithBeam bool `json:"agrees_with_beam" yaml:"agrees_with_beam"`
}

// DecodeResult is the per-matrix output of the pipeline.
type DecodeResult struct {
	Sequences  []Sequence    `json:"sequences" yaml:"sequences"`
	Greedy     *GreedyResult `json:"greedy,omitempty" yaml:"greedy,omitempty"`
	Timesteps  int           `json:"timesteps" yaml:"timesteps"`
	Classes    int           `json:"classes" yaml:"classes"`
	Normalized bool          `json:"normalized" yaml:"normalized"`
	Processing struct {
		NormalizeNs int64 `json:"normalize_ns" yaml:"normalize_ns"`
		DecodeNs    int64 `json:"decode_ns" yaml:"decode_ns"`
		GreedyNs    int64 `json:"greedy_ns,omitempty" yaml:"greedy_ns,omitempty"`
		TotalNs     int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// Best returns the top sequence, or false when nothing but the empty
// labelling survived.
func (r *DecodeResult) Best() (Sequence, bool) {
	if r == nil || len(r.Sequences) == 0 {
		return Sequence{}, false
	}
	return r.Sequences[0], true
}

// Texts returns the sequence strings in rank order.
func (r *DecodeResult) Texts() []string {
	out := make([]string, len(r.Sequences))
	for i, s := range r.Sequences {
		out[i] = s.Text
	}
	return out
}

// Scores returns the sequence scores in rank order.
func (r *DecodeResult) Scores() []float32 {
	out := make([]float32, len(r.Sequences))
	for i, s := range r.Sequences {
		out[i] = s.Score
	}
	return out
}
