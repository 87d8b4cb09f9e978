package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Limits applied to decoder overrides sent by clients.
const (
	DefaultMaxBeamSize     = 1000
	DefaultMaxAlphabetSize = 1024
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    *pipeline.Pipeline
	corsOrigin  string
	maxUploadMB int64
	maxBatch    int
	maxBeam     int
	maxAlphabet int
	timeout     time.Duration
	version     string
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	MaxBatch    int
	TimeoutSec  int
	// MaxBeamSize and MaxAlphabetSize bound per-request overrides; zero
	// selects the defaults.
	MaxBeamSize     int
	MaxAlphabetSize int
	Version     string
	Pipeline    pipeline.Config
	Alphabet    *alphabet.Alphabet
	RateLimit   RateLimitConfig
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// AlphabetResponse is returned by GET /alphabet.
type AlphabetResponse struct {
	Alphabet string   `json:"alphabet"`
	Blank    string   `json:"blank"`
	Labels   []string `json:"labels"`
	Size     int      `json:"size"`
}

// DecodeOptions are per-request overrides of the server decoder settings.
// Nil fields keep the server default.
type DecodeOptions struct {
	Alphabet    string   `json:"alphabet,omitempty"`
	BeamSize    *int     `json:"beam_size,omitempty"`
	BlankCutoff *float32 `json:"blank_cutoff,omitempty"`
	LabelCutoff *float32 `json:"label_cutoff,omitempty"`
	Normalize   string   `json:"normalize,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	Greedy      *bool    `json:"greedy,omitempty"`
}

// DecodeRequest is the body of POST /decode.
type DecodeRequest struct {
	Matrix [][]float32 `json:"matrix"`
	DecodeOptions
}

// DecodeResult is the client-facing view of a pipeline result.
type DecodeResult struct {
	Sequences    []string               `json:"sequences"`
	Scores       []float32              `json:"scores"`
	Details      []pipeline.Sequence    `json:"details,omitempty"`
	Greedy       *pipeline.GreedyResult `json:"greedy,omitempty"`
	Timesteps    int                    `json:"timesteps"`
	Normalized   bool                   `json:"normalized"`
	ProcessingMs float64                `json:"processing_ms"`
}

// DecodeResponse is the body returned by POST /decode.
type DecodeResponse struct {
	Success   bool          `json:"success"`
	Result    *DecodeResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// NewServer creates a new decoding server instance.
func NewServer(config Config) (*Server, error) {
	if config.Alphabet == nil {
		return nil, errors.New("server alphabet is required")
	}
	pl, err := pipeline.New(config.Pipeline, config.Alphabet)
	if err != nil {
		return nil, err
	}

	s := &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		maxBatch:    config.MaxBatch,
		maxBeam:     config.MaxBeamSize,
		maxAlphabet: config.MaxAlphabetSize,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		version:     config.Version,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 16
	}
	if s.maxBatch <= 0 {
		s.maxBatch = 64
	}
	if s.maxBeam <= 0 {
		s.maxBeam = DefaultMaxBeamSize
	}
	if s.maxAlphabet <= 0 {
		s.maxAlphabet = DefaultMaxAlphabetSize
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiterFromConfig(config.RateLimit)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// Pipeline returns the default decode pipeline.
func (s *Server) Pipeline() *pipeline.Pipeline { return s.pipeline }

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/alphabet", s.corsMiddleware(s.alphabetHandler))
	mux.HandleFunc("/decode", s.corsMiddleware(s.rateLimitMiddleware(s.decodeHandler)))
	mux.HandleFunc("/decode/batch", s.corsMiddleware(s.rateLimitMiddleware(s.decodeBatchHandler)))
	mux.HandleFunc("/ws", s.decodeWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return s.requestIDMiddleware(mux)
}
