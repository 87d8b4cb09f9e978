package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
)

// Profiler aggregates decode counters across calls.
type Profiler struct {
	NormalizeTimeNs atomic.Int64
	DecodeTimeNs    atomic.Int64
	Decodes         atomic.Int64
	Timesteps       atomic.Int64

	mu     sync.Mutex
	errors map[ctc.ErrorKind]int64
}

// Record adds one successful decode.
func (p *Profiler) Record(normNs, decodeNs int64, timesteps int) {
	p.NormalizeTimeNs.Add(normNs)
	p.DecodeTimeNs.Add(decodeNs)
	p.Decodes.Add(1)
	p.Timesteps.Add(int64(timesteps))
}

// RecordError counts a failed decode by kind.
func (p *Profiler) RecordError(kind ctc.ErrorKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errors == nil {
		p.errors = make(map[ctc.ErrorKind]int64)
	}
	p.errors[kind]++
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	n := p.Decodes.Load()
	dec := p.DecodeTimeNs.Load()
	out := map[string]any{
		"decodes":            n,
		"timesteps":          p.Timesteps.Load(),
		"normalize_ms_total": p.NormalizeTimeNs.Load() / 1_000_000,
		"decode_ms_total":    dec / 1_000_000,
	}
	if n > 0 {
		out["decode_ms_per_matrix"] = float64(dec) / 1_000_000.0 / float64(n)
	}
	p.mu.Lock()
	for kind, c := range p.errors {
		out["errors_"+kind.String()] = c
	}
	p.mu.Unlock()
	return out
}
