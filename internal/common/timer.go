// Package common holds the timing and memory helpers shared by the decode
// pipeline and the benchmark runner.
package common

import (
	"log/slog"
	"time"
)

// Lap is the time spent in one named stage.
type Lap struct {
	Stage    string
	Duration time.Duration
}

// Stopwatch splits a span of work into consecutive stages. It is not safe
// for concurrent use.
type Stopwatch struct {
	start time.Time
	last  time.Time
	laps  []Lap
}

// StartStopwatch starts a stopwatch at the current time.
func StartStopwatch() *Stopwatch {
	now := time.Now()
	return &Stopwatch{start: now, last: now}
}

// Lap records the time since the previous lap (or the start) under stage
// and returns it.
func (s *Stopwatch) Lap(stage string) time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.laps = append(s.laps, Lap{Stage: stage, Duration: d})
	return d
}

// Skip discards the time since the previous lap so that untimed work is not
// charged to the next stage.
func (s *Stopwatch) Skip() {
	s.last = time.Now()
}

// Total returns the time since the start, including skipped work.
func (s *Stopwatch) Total() time.Duration {
	return time.Since(s.start)
}

// Laps returns the recorded stages in order.
func (s *Stopwatch) Laps() []Lap {
	return append([]Lap(nil), s.laps...)
}

// LogValue renders the laps as a group for structured logging.
func (s *Stopwatch) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(s.laps)+1)
	for _, l := range s.laps {
		attrs = append(attrs, slog.Duration(l.Stage, l.Duration))
	}
	attrs = append(attrs, slog.Duration("total", s.Total()))
	return slog.GroupValue(attrs...)
}
