package ctc

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// DefaultBeamSize is the beam width used when none is configured.
const DefaultBeamSize = 100

// Alphabet maps column indices of a probability matrix to output symbols.
// Index 0 is the blank; Symbol(l+1) is the text emitted for label l.
type Alphabet interface {
	Len() int
	Symbol(i int) string
}

// Options controls a beam search decode.
type Options struct {
	// BeamSize is the number of hypotheses kept after every timestep.
	BeamSize int
	// BlankCutoff skips blank extensions whose probability is at or below it.
	BlankCutoff float32
	// LabelCutoff skips label extensions whose probability is at or below it.
	LabelCutoff float32
	// InitialState seeds the opaque state carried by every hypothesis.
	InitialState int
}

// DefaultOptions returns the options used by the command line and server.
func DefaultOptions() Options {
	return Options{BeamSize: DefaultBeamSize}
}

// Validate rejects option combinations that can never decode.
func (o Options) Validate() error {
	if o.BeamSize < 1 {
		return invalidInput("beam size must be at least 1, got %d", o.BeamSize)
	}
	if isNaN(o.BlankCutoff) || isNaN(o.LabelCutoff) {
		return invalidInput("cut-off thresholds must be numbers")
	}
	if o.BlankCutoff < 0 || o.LabelCutoff < 0 {
		return invalidInput("cut-off thresholds must not be negative, got blank=%g label=%g", o.BlankCutoff, o.LabelCutoff)
	}
	return nil
}

// Result holds the surviving hypotheses of a decode, best first. Labels and
// Timesteps give, per sequence, the emitted label indices and the timestep at
// which each label was first emitted.
type Result struct {
	Sequences []string
	Scores    []float32
	Labels    [][]int
	Timesteps [][]int
	States    []int
}

// Len returns the number of decoded sequences.
func (r *Result) Len() int { return len(r.Sequences) }

// Best returns the top sequence and its score; ok is false when nothing
// besides the empty labelling survived.
func (r *Result) Best() (sequence string, score float32, ok bool) {
	if r == nil || len(r.Sequences) == 0 {
		return "", 0, false
	}
	return r.Sequences[0], r.Scores[0], true
}

// searchPoint is one beam hypothesis.
type searchPoint struct {
	node  int
	state int
	// labelProb is the mass of paths ending in the last label with no trailing blank.
	labelProb float32
	// gapProb is the mass of paths ending in one or more blanks.
	gapProb float32
}

func (p searchPoint) probability() float32 { return p.labelProb + p.gapProb }

// beamSearcher owns the tree and the beam buffers of a single decode call.
type beamSearcher struct {
	opts   Options
	labels int
	tree   *SuffixTree
	beam   []searchPoint
	next   []searchPoint
}

func newBeamSearcher(labels int, opts Options) *beamSearcher {
	s := &beamSearcher{
		opts:   opts,
		labels: labels,
		tree:   NewSuffixTree(labels),
		beam:   make([]searchPoint, 0, 64),
		next:   make([]searchPoint, 0, 64),
	}
	s.beam = append(s.beam, searchPoint{
		node:    RootNode,
		state:   opts.InitialState,
		gapProb: 1.0,
	})
	return s
}

// BeamSearch decodes m with CTC prefix beam search and returns the surviving
// non-empty labellings ordered by descending score. Scores are relative to the
// best hypothesis of the last timestep, which scores exactly 1.
func BeamSearch(m Matrix, alphabet Alphabet, opts Options) (*Result, error) {
	if alphabet == nil || alphabet.Len() < 1 {
		return nil, invalidInput("alphabet must contain at least the blank symbol")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Rows > 0 && m.Cols != alphabet.Len() {
		return nil, invalidInput("matrix has %d columns but alphabet has %d symbols", m.Cols, alphabet.Len())
	}

	s := newBeamSearcher(alphabet.Len()-1, opts)
	for t := range m.Rows {
		s.expand(m.Row(t), t)
		s.merge()
		if err := s.prune(t); err != nil {
			return nil, err
		}
		s.renormalize()
	}
	return s.finalize(alphabet), nil
}

// expand extends every hypothesis by one timestep into s.next.
func (s *beamSearcher) expand(pr []float32, t int) {
	s.next = s.next[:0]
	blank := pr[0]
	for _, p := range s.beam {
		tip, hasTip := s.tree.Label(p.node)

		// NaN is deliberately not filtered here so that prune reports it.
		if !(blank <= s.opts.BlankCutoff) {
			s.next = append(s.next, searchPoint{
				node:    p.node,
				state:   p.state,
				gapProb: (p.labelProb + p.gapProb) * blank,
			})
		}

		for label, prob := range pr[1:] {
			if prob <= s.opts.LabelCutoff {
				continue
			}
			if hasTip && label == tip {
				// A repeat without a blank in between collapses into the same labelling.
				s.next = append(s.next, searchPoint{
					node:      p.node,
					state:     p.state,
					labelProb: p.labelProb * prob,
				})
				// A repeat after a blank emits the label a second time.
				if p.gapProb > 0 {
					child := s.tree.childOrAdd(p.node, label, t)
					s.next = append(s.next, searchPoint{
						node:      child,
						state:     p.state,
						labelProb: p.gapProb * prob,
					})
				}
				continue
			}
			child := s.tree.childOrAdd(p.node, label, t)
			s.next = append(s.next, searchPoint{
				node:      child,
				state:     p.state,
				labelProb: (p.labelProb + p.gapProb) * prob,
			})
		}
	}
	s.beam, s.next = s.next, s.beam
}

// merge folds hypotheses that share a node into one by summing both masses.
func (s *beamSearcher) merge() {
	if len(s.beam) < 2 {
		return
	}
	slices.SortStableFunc(s.beam, func(a, b searchPoint) int { return cmp.Compare(a.node, b.node) })
	w := 0
	for i := 1; i < len(s.beam); i++ {
		if s.beam[i].node == s.beam[w].node {
			s.beam[w].labelProb += s.beam[i].labelProb
			s.beam[w].gapProb += s.beam[i].gapProb
			continue
		}
		w++
		s.beam[w] = s.beam[i]
	}
	s.beam = s.beam[:w+1]
}

// prune ranks the merged hypotheses and keeps the best BeamSize of them.
func (s *beamSearcher) prune(t int) error {
	w := 0
	for _, p := range s.beam {
		prob := p.probability()
		if isNaN(prob) || math.IsInf(float64(prob), 0) {
			return &DecodeError{Kind: KindIncomparableValues, Timestep: t}
		}
		// Zero-mass hypotheses can never regain probability.
		if prob > 0 {
			s.beam[w] = p
			w++
		}
	}
	s.beam = s.beam[:w]

	slices.SortStableFunc(s.beam, func(a, b searchPoint) int {
		if c := cmp.Compare(b.probability(), a.probability()); c != 0 {
			return c
		}
		return cmp.Compare(a.node, b.node)
	})
	if len(s.beam) > s.opts.BeamSize {
		s.beam = s.beam[:s.opts.BeamSize]
	}
	if len(s.beam) == 0 {
		return &DecodeError{Kind: KindBeamExhausted, Timestep: t}
	}
	return nil
}

// renormalize rescales the beam so the best hypothesis has probability 1.
func (s *beamSearcher) renormalize() {
	top := s.beam[0].probability()
	for i := range s.beam {
		s.beam[i].labelProb /= top
		s.beam[i].gapProb /= top
	}
}

func (s *beamSearcher) finalize(alphabet Alphabet) *Result {
	res := &Result{}
	var sb strings.Builder
	for i, p := range s.beam {
		if p.node == RootNode {
			continue
		}
		// The split into label and gap mass can leave the renormalized sum
		// an ulp away from 1.
		score := min(p.probability(), 1)
		if i == 0 {
			score = 1
		}
		labels, times := s.tree.Path(p.node)
		sb.Reset()
		for _, l := range labels {
			sb.WriteString(alphabet.Symbol(l + 1))
		}
		res.Sequences = append(res.Sequences, sb.String())
		res.Scores = append(res.Scores, score)
		res.Labels = append(res.Labels, labels)
		res.Timesteps = append(res.Timesteps, times)
		res.States = append(res.States, p.state)
	}
	return res
}

func isNaN(v float32) bool { return math.IsNaN(float64(v)) }
