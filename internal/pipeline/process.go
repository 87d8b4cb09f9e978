package pipeline

import (
	"context"
	"log/slog"
	"slices"

	"github.com/MeKo-Tech/ctcbeam/internal/common"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
)

// ProcessMatrix decodes m. Normalization rewrites m in place.
func (p *Pipeline) ProcessMatrix(m ctc.Matrix) (*DecodeResult, error) {
	return p.ProcessMatrixContext(context.Background(), m)
}

// ProcessRows copies rows into a pooled matrix and decodes it.
func (p *Pipeline) ProcessRows(ctx context.Context, rows [][]float32) (*DecodeResult, error) {
	m, err := ctc.NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	defer m.Release()
	return p.ProcessMatrixContext(ctx, m)
}

// ProcessMatrixContext decodes m unless ctx is already done.
func (p *Pipeline) ProcessMatrixContext(ctx context.Context, m ctc.Matrix) (*DecodeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sw := common.StartStopwatch()
	res := &DecodeResult{Timesteps: m.Rows, Classes: m.Cols}

	if err := m.Validate(); err != nil {
		p.profiler.RecordError(ctc.KindOf(err))
		return nil, err
	}
	sw.Skip()

	res.Normalized = p.cfg.Normalize != ctc.NormalizeNever && needsNormalize(m, p.cfg.Normalize)
	ctc.Normalize(m, p.cfg.Normalize)
	res.Processing.NormalizeNs = sw.Lap("normalize").Nanoseconds()

	out, err := ctc.BeamSearch(m, p.alphabet, p.cfg.Options())
	res.Processing.DecodeNs = sw.Lap("beam").Nanoseconds()
	if err != nil {
		p.profiler.RecordError(ctc.KindOf(err))
		slog.Debug("beam search failed", "timesteps", m.Rows, "classes", m.Cols, "error", err)
		return nil, err
	}

	n := out.Len()
	if p.cfg.TopK > 0 {
		n = min(n, p.cfg.TopK)
	}
	res.Sequences = make([]Sequence, n)
	for i := range n {
		seq := Sequence{
			Text:      out.Sequences[i],
			Score:     out.Scores[i],
			Labels:    slices.Clone(out.Labels[i]),
			Timesteps: slices.Clone(out.Timesteps[i]),
		}
		if p.cfg.CleanText {
			if cleaned := PostProcessText(seq.Text, p.cfg.Clean); cleaned != seq.Text {
				seq.Raw, seq.Text = seq.Text, cleaned
			}
		}
		res.Sequences[i] = seq
	}

	if p.cfg.CompareGreedy {
		sw.Skip()
		greedy := ctc.GreedyDecode(m, p.alphabet)
		res.Processing.GreedyNs = sw.Lap("greedy").Nanoseconds()
		text := greedy.Text
		if p.cfg.CleanText {
			text = PostProcessText(text, p.cfg.Clean)
		}
		best, ok := res.Best()
		res.Greedy = &GreedyResult{
			Text:           text,
			Confidence:     greedy.Confidence,
			AgreesWithBeam: (ok && best.Text == text) || (!ok && text == ""),
		}
	}

	res.Processing.TotalNs = sw.Total().Nanoseconds()
	slog.Debug("matrix decoded", "timesteps", m.Rows, "sequences", len(res.Sequences), "timing", sw)
	p.profiler.Record(res.Processing.NormalizeNs, res.Processing.DecodeNs, m.Rows)
	return res, nil
}

// needsNormalize reports whether Normalize would touch any row of m.
func needsNormalize(m ctc.Matrix, mode ctc.NormalizeMode) bool {
	if mode == ctc.NormalizeAlways {
		return m.Rows > 0
	}
	for t := range m.Rows {
		if !ctc.LooksLikeProbabilities(m.Row(t)) {
			return true
		}
	}
	return false
}
