package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/MeKo-Tech/ctcbeam/internal/pipeline"
)

// BatchMatrix is one named matrix in a batch request.
type BatchMatrix struct {
	Name   string      `json:"name"`
	Matrix [][]float32 `json:"matrix"`
}

// BatchDecodeRequest is the body of POST /decode/batch. Options apply to
// every matrix.
type BatchDecodeRequest struct {
	Matrices []BatchMatrix `json:"matrices"`
	DecodeOptions
}

// BatchDecodeResult is one entry of a batch response.
type BatchDecodeResult struct {
	Name      string        `json:"name"`
	Success   bool          `json:"success"`
	Result    *DecodeResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// BatchDecodeResponse is the body returned by POST /decode/batch.
type BatchDecodeResponse struct {
	Success   bool                   `json:"success"`
	Results   []BatchDecodeResult    `json:"results,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorType string                 `json:"error_type,omitempty"`
	Summary   BatchProcessingSummary `json:"summary"`
	RequestID string                 `json:"request_id,omitempty"`
}

// decodeBatchHandler decodes several matrices with the worker pool.
func (s *Server) decodeBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := RequestIDFromContext(r.Context())

	var req BatchDecodeRequest
	if status, err := s.decodeBody(w, r, &req); err != nil {
		s.writeErrorResponse(w, requestID, err.Error(), "invalid_request", status)
		return
	}
	if len(req.Matrices) == 0 {
		s.writeErrorResponse(w, requestID, "No matrices provided in batch request", "invalid_request", http.StatusBadRequest)
		return
	}
	if len(req.Matrices) > s.maxBatch {
		s.writeErrorResponse(w, requestID, fmt.Sprintf("Batch size too large (maximum %d items)", s.maxBatch),
			"invalid_request", http.StatusBadRequest)
		return
	}

	pl, err := s.pipelineForRequest(req.DecodeOptions)
	if err != nil {
		s.writeErrorResponse(w, requestID, err.Error(), "invalid_request", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	loaders := make([]pipeline.Loader, len(req.Matrices))
	for i, item := range req.Matrices {
		loaders[i] = func() (ctc.Matrix, error) { return ctc.NewMatrix(item.Matrix) }
	}
	itemErrors := make([]error, len(req.Matrices))
	parallel := pl.Config().Parallel
	parallel.ErrorHandler = func(i int, err error) { itemErrors[i] = err }

	start := time.Now()
	results, err := pl.ProcessLoadersParallel(ctx, loaders, parallel)
	duration := time.Since(start)
	if err != nil && ctx.Err() != nil {
		s.writeDecodeError(w, requestID, ctx.Err())
		return
	}

	response := BatchDecodeResponse{
		Results:   make([]BatchDecodeResult, len(req.Matrices)),
		RequestID: requestID,
	}
	summary := &response.Summary
	summary.TotalItems = len(req.Matrices)
	for i, item := range req.Matrices {
		entry := BatchDecodeResult{Name: item.Name}
		if itemErr := itemErrors[i]; itemErr != nil {
			_, entry.ErrorType = decodeErrorStatus(itemErr)
			entry.Error = itemErr.Error()
			summary.Failed++
			recordDecodeFailure("batch", itemErr)
		} else if results[i] != nil {
			entry.Success = true
			entry.Result = toDecodeResult(results[i])
			summary.Successful++
			recordDecodeSuccess("batch", 0, results[i])
		}
		response.Results[i] = entry
	}
	summary.TotalDuration = duration.Seconds()
	summary.AvgItemTime = summary.TotalDuration / float64(summary.TotalItems)
	response.Success = summary.Failed == 0
	decodeDuration.WithLabelValues("batch").Observe(duration.Seconds())

	s.writeJSON(w, http.StatusOK, response)
}
