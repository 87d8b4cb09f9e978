package onnx

import (
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatricesFromTensor_TimeMajor(t *testing.T) {
	src := Tensor{
		Data:  []float32{0.9, 0.1, 0.2, 0.8, 0.5, 0.5},
		Shape: []int64{1, 3, 2},
	}
	ms, err := MatricesFromTensor(src, 2)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	defer ms[0].Release()
	assert.Equal(t, 3, ms[0].Rows)
	assert.Equal(t, []float32{0.2, 0.8}, ms[0].Row(1))
}

func TestMatricesFromTensor_ClassesFirst(t *testing.T) {
	// [N=1, C=2, T=3]
	src := Tensor{
		Data:  []float32{0.9, 0.2, 0.5, 0.1, 0.8, 0.5},
		Shape: []int64{1, 2, 3},
	}
	ms, err := MatricesFromTensor(src, 2)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	defer ms[0].Release()
	assert.Equal(t, 3, ms[0].Rows)
	assert.Equal(t, []float32{0.2, 0.8}, ms[0].Row(1))
}

func TestMatricesFromTensor_Rank2AndBatch(t *testing.T) {
	ms, err := MatricesFromTensor(Tensor{Data: []float32{1, 0, 0, 1}, Shape: []int64{2, 2}}, 0)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	ms[0].Release()

	ms, err = MatricesFromTensor(Tensor{Data: make([]float32, 2*4*3), Shape: []int64{2, 4, 3, 1}}, 3)
	require.NoError(t, err)
	assert.Len(t, ms, 2)
	for i := range ms {
		assert.Equal(t, 4, ms[i].Rows)
		ms[i].Release()
	}
}

func TestMatricesFromTensor_Errors(t *testing.T) {
	_, err := MatricesFromTensor(nil, 0)
	assert.Error(t, err)

	_, err = MatricesFromTensor(Tensor{Data: []float32{1}, Shape: []int64{1}}, 0)
	assert.Error(t, err)

	_, err = MatricesFromTensor(Tensor{Data: []float32{1, 2, 3}, Shape: []int64{1, 2, 2}}, 0)
	assert.Error(t, err)

	_, err = MatricesFromTensor(Tensor{Data: make([]float32, 12), Shape: []int64{1, 3, 4}}, 5)
	assert.ErrorContains(t, err, "alphabet has 5")
}

func TestValidateShape(t *testing.T) {
	assert.NoError(t, ValidateShape([]int64{10, 5}))
	assert.NoError(t, ValidateShape([]int64{1, 10, 5}))
	assert.NoError(t, ValidateShape([]int64{1, 10, 5, 1}))
	assert.Error(t, ValidateShape([]int64{5}))
	assert.Error(t, ValidateShape([]int64{1, 2, 3, 4}))
	assert.Error(t, ValidateShape([]int64{1, -1, 5}))
}

func TestFromValue(t *testing.T) {
	_, err := FromValue(nil)
	assert.Error(t, err)
}

func TestTensorStats(t *testing.T) {
	lo, hi, mean := TensorStats([]float32{1, -2, 4})
	assert.InDelta(t, -2, lo, 1e-9)
	assert.InDelta(t, 4, hi, 1e-9)
	assert.InDelta(t, 1, mean, 1e-6)

	lo, hi, mean = TensorStats(nil)
	assert.Zero(t, lo+hi+mean)
}

func mustFeatures(t *testing.T) ctc.Matrix {
	t.Helper()
	m, err := ctc.NewMatrix([][]float32{{0.1, 0.2}, {0.3, 0.4}})
	require.NoError(t, err)
	t.Cleanup(func() { m.Release() })
	return m
}
