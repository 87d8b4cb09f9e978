package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	ort "github.com/yalue/onnxruntime_go"
)

// ModelConfig configures an acoustic model session.
type ModelConfig struct {
	Path       string
	NumThreads int
	GPU        GPUConfig
	// Classes is the alphabet size the model emits, used to detect [N, C, T]
	// outputs. 0 assumes [N, T, C].
	Classes int
}

// Model runs a single-input single-output ONNX model that maps a [1, T, F]
// feature sequence to CTC class scores.
type Model struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	input   ort.InputOutputInfo
	output  ort.InputOutputInfo
	classes int
}

// LoadModel initializes the runtime and opens a session for cfg.Path.
func LoadModel(cfg ModelConfig) (*Model, error) {
	if cfg.Path == "" {
		return nil, errors.New("model path is empty")
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	if err := ValidateGPUConfig(cfg.GPU); err != nil {
		return nil, err
	}
	if err := InitRuntime(cfg.GPU.UseGPU); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()
	if err := configureSessionForGPU(opts, cfg.GPU); err != nil {
		return nil, err
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.Path,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	slog.Info("model loaded", "path", cfg.Path, "input", inputs[0].Name, "output", outputs[0].Name)
	return &Model{session: session, input: inputs[0], output: outputs[0], classes: cfg.Classes}, nil
}

// Run feeds features as a [1, T, F] tensor and returns the model output as
// probability matrices, one per batch entry.
func (m *Model) Run(features ctc.Matrix) ([]ctc.Matrix, error) {
	if err := features.Validate(); err != nil {
		return nil, err
	}
	if features.Rows == 0 {
		return nil, errors.New("empty feature sequence")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, errors.New("model is closed")
	}

	in, err := ort.NewTensor(ort.NewShape(1, int64(features.Rows), int64(features.Cols)), features.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		if err := in.Destroy(); err != nil {
			slog.Warn("failed to destroy input tensor", "error", err)
		}
	}()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] == nil {
			return
		}
		if err := outputs[0].Destroy(); err != nil {
			slog.Warn("failed to destroy output tensor", "error", err)
		}
	}()

	src, err := FromValue(outputs[0])
	if err != nil {
		return nil, err
	}
	return MatricesFromTensor(src, m.classes)
}

// Close releases the session.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
