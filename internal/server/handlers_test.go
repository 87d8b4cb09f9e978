package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/MeKo-Tech/ctcbeam/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	alpha, err := alphabet.Parse("-AB")
	require.NoError(t, err)
	cfg := Config{
		Alphabet:    alpha,
		Pipeline:    pipeline.DefaultConfig(),
		MaxUploadMB: 1,
		MaxBatch:    4,
		TimeoutSec:  5,
		Version:     "test",
	}
	cfg.Pipeline.Parallel.MaxWorkers = 2
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func abRows() [][]float32 {
	return testutil.OneHotRows(3, testutil.Path("-AB", "AB"))
}

func TestNewServer_RequiresAlphabet(t *testing.T) {
	_, err := NewServer(Config{Pipeline: pipeline.DefaultConfig()})
	require.Error(t, err)
}

func TestNewServer_Defaults(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.CORSOrigin = ""
		c.MaxUploadMB = 0
		c.MaxBatch = 0
	})
	assert.Equal(t, "*", s.corsOrigin)
	assert.Equal(t, int64(16), s.maxUploadMB)
	assert.Equal(t, 64, s.maxBatch)
	assert.Nil(t, s.rateLimiter)
	assert.NoError(t, s.Close())
}

func TestServer_HealthHandler(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.healthHandler(w, httptest.NewRequest(tt.method, "/health", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "healthy", response.Status)
			assert.Equal(t, "test", response.Version)
			assert.NotEmpty(t, response.Time)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestServer_AlphabetHandler(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.alphabetHandler(w, httptest.NewRequest(http.MethodGet, "/alphabet", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response AlphabetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "-AB", response.Alphabet)
	assert.Equal(t, "-", response.Blank)
	assert.Equal(t, 3, response.Size)
}

func TestServer_Decode(t *testing.T) {
	s := newTestServer(t, nil)
	w := postJSON(t, s.Handler(), "/decode", DecodeRequest{Matrix: abRows()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response DecodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.True(t, response.Success)
	require.NotNil(t, response.Result)
	assert.Equal(t, []string{"AB"}, response.Result.Sequences)
	assert.InDelta(t, 1.0, response.Result.Scores[0], 1e-6)
	assert.Equal(t, 2, response.Result.Timesteps)
	assert.NotEmpty(t, response.RequestID)
	assert.Equal(t, response.RequestID, w.Header().Get(RequestIDHeader))
}

func TestServer_DecodeOverrides(t *testing.T) {
	s := newTestServer(t, nil)
	greedy := true
	req := DecodeRequest{
		Matrix:        testutil.OneHotRows(3, testutil.Path("-xy", "yx")),
		DecodeOptions: DecodeOptions{Alphabet: "-xy", Greedy: &greedy},
	}
	w := postJSON(t, s.Handler(), "/decode", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response DecodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "yx", response.Result.Sequences[0])
	require.NotNil(t, response.Result.Greedy)
	assert.True(t, response.Result.Greedy.AgreesWithBeam)
}

func TestServer_DecodeErrors(t *testing.T) {
	s := newTestServer(t, nil)
	zero := 0
	hugeBeam := DefaultMaxBeamSize + 1

	tests := []struct {
		name      string
		body      any
		status    int
		errorType string
	}{
		{"exhausted beam", DecodeRequest{Matrix: [][]float32{{0, 1, 0}, {0, 0, 0}}}, http.StatusUnprocessableEntity, "beam_exhausted"},
		{"ragged rows", DecodeRequest{Matrix: [][]float32{{0, 1, 0}, {1}}}, http.StatusUnprocessableEntity, "invalid_input"},
		{"alphabet mismatch", DecodeRequest{Matrix: [][]float32{{0.5, 0.5}}}, http.StatusUnprocessableEntity, "invalid_input"},
		{"bad beam size", DecodeRequest{Matrix: abRows(), DecodeOptions: DecodeOptions{BeamSize: &zero}}, http.StatusBadRequest, "invalid_request"},
		{"bad normalize mode", DecodeRequest{Matrix: abRows(), DecodeOptions: DecodeOptions{Normalize: "sometimes"}}, http.StatusBadRequest, "invalid_request"},
		{"beam size over limit", DecodeRequest{Matrix: abRows(), DecodeOptions: DecodeOptions{BeamSize: &hugeBeam}}, http.StatusBadRequest, "invalid_request"},
		{"alphabet over limit", DecodeRequest{Matrix: abRows(), DecodeOptions: DecodeOptions{Alphabet: wideAlphabet(DefaultMaxAlphabetSize + 1)}}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, s.Handler(), "/decode", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())

			var response DecodeResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.False(t, response.Success)
			assert.Equal(t, tt.errorType, response.ErrorType)
			assert.NotEmpty(t, response.Error)
		})
	}
}

// wideAlphabet returns a blank followed by size-1 distinct CJK labels.
func wideAlphabet(size int) string {
	var b strings.Builder
	b.WriteRune('-')
	for i := range size - 1 {
		b.WriteRune(rune(0x4E00 + i))
	}
	return b.String()
}

func TestServer_OverrideLimits(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.MaxBeamSize = 8
		c.MaxAlphabetSize = 3
	})
	assert.Equal(t, 8, s.maxBeam)
	assert.Equal(t, 3, s.maxAlphabet)

	eight, nine := 8, 9
	w := postJSON(t, s.Handler(), "/decode", DecodeRequest{Matrix: abRows(), DecodeOptions: DecodeOptions{BeamSize: &eight}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(t, s.Handler(), "/decode", DecodeRequest{Matrix: abRows(), DecodeOptions: DecodeOptions{BeamSize: &nine}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "server limit")

	w = postJSON(t, s.Handler(), "/decode", DecodeRequest{Matrix: [][]float32{{0.1, 0.2, 0.3, 0.4}}, DecodeOptions: DecodeOptions{Alphabet: "-xyz"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "server limit")

	defaults := newTestServer(t, nil)
	assert.Equal(t, DefaultMaxBeamSize, defaults.maxBeam)
	assert.Equal(t, DefaultMaxAlphabetSize, defaults.maxAlphabet)
}

func TestServer_DecodeMalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_DecodeBodyTooLarge(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{"matrix":[[` + strings.Repeat("0.1,", 300000) + `0.1]]}`
	req := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_DecodeMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/decode", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, nil)
	postJSON(t, s.Handler(), "/decode", DecodeRequest{Matrix: abRows()})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ctcbeam_decode_requests_total")
}
