package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/alphabet"
	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// alphabetHandler describes the server's default alphabet.
func (s *Server) alphabetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	a := s.pipeline.Alphabet()
	s.writeJSON(w, http.StatusOK, AlphabetResponse{
		Alphabet: a.String(),
		Blank:    a.Blank(),
		Labels:   a.Labels(),
		Size:     a.Len(),
	})
}

// decodeHandler decodes a single matrix.
func (s *Server) decodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := RequestIDFromContext(r.Context())

	var req DecodeRequest
	if status, err := s.decodeBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, requestID, err.Error(), "invalid_request", status)
		return
	}

	pl, err := s.pipelineForRequest(req.DecodeOptions)
	if err != nil {
		s.writeErrorResponse(w, requestID, err.Error(), "invalid_request", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	start := time.Now()
	res, err := pl.ProcessRows(ctx, req.Matrix)
	duration := time.Since(start)
	if err != nil {
		recordDecodeFailure("single", err)
		s.writeDecodeError(w, requestID, err)
		return
	}
	recordDecodeSuccess("single", duration, res)

	s.writeJSON(w, http.StatusOK, DecodeResponse{
		Success:   true,
		Result:    toDecodeResult(res),
		RequestID: requestID,
	})
}

// decodeBody reads a size-limited JSON body into v. It returns the status to
// report when decoding fails.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d MB", s.maxUploadMB)
		}
		return http.StatusBadRequest, fmt.Errorf("failed to parse JSON request: %w", err)
	}
	return http.StatusOK, nil
}

// requestContext bounds a decode by the configured timeout.
func (s *Server) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

// pipelineForRequest returns the default pipeline, or a derived one when the
// request overrides any decoder setting.
func (s *Server) pipelineForRequest(opts DecodeOptions) (*pipeline.Pipeline, error) {
	if opts == (DecodeOptions{}) {
		return s.pipeline, nil
	}

	cfg := s.pipeline.Config()
	if opts.BeamSize != nil {
		if *opts.BeamSize > s.maxBeam {
			return nil, fmt.Errorf("beam_size %d exceeds the server limit of %d", *opts.BeamSize, s.maxBeam)
		}
		cfg.BeamSize = *opts.BeamSize
	}
	if opts.BlankCutoff != nil {
		cfg.BlankCutoff = *opts.BlankCutoff
	}
	if opts.LabelCutoff != nil {
		cfg.LabelCutoff = *opts.LabelCutoff
	}
	if opts.Normalize != "" {
		mode, err := ctc.ParseNormalizeMode(opts.Normalize)
		if err != nil {
			return nil, err
		}
		cfg.Normalize = mode
	}
	if opts.TopK != nil {
		cfg.TopK = *opts.TopK
	}
	if opts.Greedy != nil {
		cfg.CompareGreedy = *opts.Greedy
	}

	if opts.Alphabet == "" {
		return s.pipeline.WithOverrides(cfg)
	}
	alpha, err := alphabet.Parse(opts.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("invalid alphabet: %w", err)
	}
	if alpha.Len() > s.maxAlphabet {
		return nil, fmt.Errorf("alphabet has %d symbols, the server limit is %d", alpha.Len(), s.maxAlphabet)
	}
	return pipeline.New(cfg, alpha)
}

func toDecodeResult(res *pipeline.DecodeResult) *DecodeResult {
	return &DecodeResult{
		Sequences:    res.Texts(),
		Scores:       res.Scores(),
		Details:      res.Sequences,
		Greedy:       res.Greedy,
		Timesteps:    res.Timesteps,
		Normalized:   res.Normalized,
		ProcessingMs: float64(res.Processing.TotalNs) / 1e6,
	}
}

// decodeErrorStatus maps a decode failure to an HTTP status and error type.
func decodeErrorStatus(err error) (int, string) {
	var de *ctc.DecodeError
	switch {
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, de.Kind.String()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeDecodeError(w http.ResponseWriter, requestID string, err error) {
	status, kind := decodeErrorStatus(err)
	s.writeErrorResponse(w, requestID, err.Error(), kind, status)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, requestID, message, errorType string, statusCode int) {
	s.writeJSON(w, statusCode, DecodeResponse{
		Success:   false,
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
