package pipeline

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpProgressCallback(t *testing.T) {
	callback := NoOpProgressCallback{}
	callback.OnStart(10)
	callback.OnProgress(5, 10)
	callback.OnComplete()
	callback.OnError(3, assert.AnError)
}

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	callback := NewConsoleProgressCallback(&buf, "Test: ").WithWidth(10).WithUpdateInterval(0)

	callback.OnStart(10)
	assert.Contains(t, buf.String(), "Test: 0/10 (0.0%)")

	buf.Reset()
	callback.OnProgress(5, 10)
	out := buf.String()
	assert.Contains(t, out, "5/10")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "█████░░░░░")

	buf.Reset()
	callback.OnError(3, assert.AnError)
	assert.Contains(t, buf.String(), "Test: Error at item 3")

	buf.Reset()
	callback.OnComplete()
	assert.Contains(t, buf.String(), "Test: Completed")
}

func TestConsoleProgressCallback_Throttles(t *testing.T) {
	var buf bytes.Buffer
	callback := NewConsoleProgressCallback(&buf, "").WithUpdateInterval(time.Hour)
	callback.OnStart(10)
	callback.OnProgress(1, 10)
	buf.Reset()

	callback.OnProgress(2, 10)
	assert.Empty(t, buf.String(), "update inside the interval is skipped")

	callback.OnProgress(10, 10)
	assert.Contains(t, buf.String(), "10/10", "final update is always drawn")
}

func TestLogProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	callback := NewLogProgressCallback(logger, slog.LevelInfo).WithInterval(5)

	callback.OnStart(10)
	callback.OnProgress(2, 10)
	callback.OnProgress(5, 10)
	callback.OnProgress(10, 10)
	callback.OnError(4, assert.AnError)
	callback.OnComplete()

	out := buf.String()
	assert.Contains(t, out, `"msg":"decoding started"`)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"msg":"decoding progress"`)))
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"msg":"decoding completed"`)
}

func TestMultiProgressCallback(t *testing.T) {
	a, b := &recordingProgress{}, &recordingProgress{}
	multi := NewMultiProgressCallback(a, b)
	multi.OnStart(3)
	multi.OnProgress(2, 3)
	multi.OnError(1, assert.AnError)
	multi.OnComplete()

	for _, r := range []*recordingProgress{a, b} {
		assert.Equal(t, 3, r.started)
		assert.Equal(t, 2, r.last)
		assert.Equal(t, []int{1}, r.errors)
		assert.True(t, r.complete)
	}
}
