package onnx

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	ort "github.com/yalue/onnxruntime_go"
)

// Tensor is a float32 tensor in row-major layout, e.g. a CTC model output of
// shape [N, T, C].
type Tensor struct {
	Data  []float32
	Shape []int64
}

// GetData returns the flat tensor data.
func (t Tensor) GetData() []float32 { return t.Data }

// GetShape returns the tensor dimensions.
func (t Tensor) GetShape() ort.Shape { return ort.Shape(t.Shape) }

// TensorSource is satisfied by *onnxruntime_go.Tensor[float32] and by Tensor.
type TensorSource interface {
	GetData() []float32
	GetShape() ort.Shape
}

// FromValue converts a session output into a TensorSource. Only float32
// tensors are accepted.
func FromValue(v ort.Value) (TensorSource, error) {
	if v == nil {
		return nil, errors.New("nil output value")
	}
	t, ok := v.(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 tensor, got %T", v)
	}
	return t, nil
}

// ValidateShape ensures a CTC output shape has rank 2 ([T, C]) or rank 3
// ([N, T, C] / [N, C, T]), ignoring trailing dimensions of size 1, and that
// every dimension is positive except possibly the time axis.
func ValidateShape(shape []int64) error {
	dims := shape
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	if len(dims) != 2 && len(dims) != 3 {
		return fmt.Errorf("shape rank %d not in {2, 3}", len(shape))
	}
	for i, v := range dims {
		if v < 0 {
			return fmt.Errorf("dimension %d must be >= 0, got %d", i, v)
		}
	}
	return nil
}

// MatricesFromTensor splits a CTC model output into one probability matrix
// per batch entry. classes is the expected alphabet size including the blank
// and selects between [N, T, C] and [N, C, T] layouts; pass 0 to assume
// [N, T, C]. The returned matrices own pooled buffers and must be released.
func MatricesFromTensor(src TensorSource, classes int) ([]ctc.Matrix, error) {
	if src == nil {
		return nil, errors.New("nil tensor")
	}
	shape := []int64(src.GetShape())
	if err := ValidateShape(shape); err != nil {
		return nil, err
	}
	data := src.GetData()
	if len(shape) == 2 {
		shape = append([]int64{1}, shape...)
	}
	classesFirst := classes > 0 && ctc.ClassesFirst(shape, classes)
	ms, err := ctc.SplitBatch(data, shape, classesFirst)
	if err != nil {
		return nil, err
	}
	if classes > 0 {
		for _, m := range ms {
			if m.Rows > 0 && m.Cols != classes {
				for i := range ms {
					ms[i].Release()
				}
				return nil, fmt.Errorf("tensor has %d classes, alphabet has %d", m.Cols, classes)
			}
		}
	}
	return ms, nil
}

// TensorStats computes simple statistics for debug output.
func TensorStats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}
