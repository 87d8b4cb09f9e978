package ctc

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/ctcbeam/internal/mempool"
)

// Matrix is a row-major T×A probability matrix: one row per timestep, column 0
// holding the blank probability and column l+1 the probability of label l.
type Matrix struct {
	Rows   int
	Cols   int
	Data   []float32
	pooled bool
}

// NewMatrix copies a slice of rows into a Matrix. Rows must all share the same
// non-zero length.
func NewMatrix(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	if cols == 0 {
		return Matrix{}, invalidInput("matrix rows must not be empty")
	}
	m := AllocMatrix(len(rows), cols)
	for t, row := range rows {
		if len(row) != cols {
			m.Release()
			return Matrix{}, invalidInput("row %d has %d columns, want %d", t, len(row), cols)
		}
		copy(m.Row(t), row)
	}
	return m, nil
}

// FromShape wraps flat row-major data with an explicit shape. The shape must
// be two-dimensional; data is not copied.
func FromShape(data []float32, shape []int64) (Matrix, error) {
	if len(shape) != 2 {
		return Matrix{}, invalidInput("expected 2d tensor, got %d dimensions", len(shape))
	}
	if shape[1] <= 0 {
		return Matrix{}, invalidInput("invalid shape %v", shape)
	}
	size, ok := CheckedSize(shape[0], shape[1])
	if !ok {
		return Matrix{}, invalidInput("invalid shape %v", shape)
	}
	if len(data) != size {
		return Matrix{}, invalidInput("data length %d does not match shape %v", len(data), shape)
	}
	return Matrix{Rows: int(shape[0]), Cols: int(shape[1]), Data: data}, nil
}

// CheckedSize returns rows*cols, or false when a dimension is negative or
// the product does not fit in an int.
func CheckedSize(rows, cols int64) (int, bool) {
	if rows < 0 || cols < 0 {
		return 0, false
	}
	if cols > 0 && rows > math.MaxInt/cols {
		return 0, false
	}
	return int(rows * cols), true
}

// AllocMatrix returns a zeroed rows×cols matrix backed by a pooled buffer.
// Call Release once the matrix is no longer needed.
func AllocMatrix(rows, cols int) Matrix {
	data := mempool.GetFloat32(rows * cols)
	clear(data)
	return Matrix{Rows: rows, Cols: cols, Data: data, pooled: true}
}

// Release hands a pooled buffer back to the pool. It is a no-op for matrices
// that wrap caller-owned data.
func (m *Matrix) Release() {
	if m.pooled {
		mempool.PutFloat32(m.Data)
	}
	m.Data = nil
	m.pooled = false
}

// Row returns the probabilities of timestep t. The slice aliases the matrix.
// Pooled buffers can have spare capacity; it is never reachable through Row.
func (m Matrix) Row(t int) []float32 {
	off := t * m.Cols
	return m.Data[off : off+m.Cols : len(m.Data)]
}

// At returns the probability of column c at timestep t.
func (m Matrix) At(t, c int) float32 { return m.Data[t*m.Cols+c] }

// Validate checks that dimensions and backing data agree.
func (m Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return invalidInput("negative matrix dimensions %dx%d", m.Rows, m.Cols)
	}
	if m.Rows > 0 && m.Cols == 0 {
		return invalidInput("matrix has %d rows but no columns", m.Rows)
	}
	size, ok := CheckedSize(int64(m.Rows), int64(m.Cols))
	if !ok {
		return invalidInput("matrix dimensions %dx%d overflow", m.Rows, m.Cols)
	}
	if len(m.Data) != size {
		return invalidInput("data length %d does not match %dx%d", len(m.Data), m.Rows, m.Cols)
	}
	return nil
}

// String summarizes the matrix shape.
func (m Matrix) String() string { return fmt.Sprintf("Matrix[%dx%d]", m.Rows, m.Cols) }

// squeezeShape drops trailing dimensions of size 1 beyond rank 3.
func squeezeShape(shape []int64) []int64 {
	dims := append([]int64(nil), shape...)
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	return dims
}

// ClassesFirst infers whether a rank-3 model output is laid out [N, C, T]
// (true) or [N, T, C] (false), given the expected class count.
func ClassesFirst(shape []int64, classes int) bool {
	dims := squeezeShape(shape)
	if len(dims) < 3 {
		return false
	}
	if int(dims[2]) == classes {
		return false
	}
	return int(dims[1]) == classes
}

// SplitBatch slices a batched model output into one matrix per batch entry.
// The layout is [N, T, C], or [N, C, T] when classesFirst is set; trailing
// dimensions of size 1 are ignored. Every returned matrix owns its data.
func SplitBatch(data []float32, shape []int64, classesFirst bool) ([]Matrix, error) {
	dims := squeezeShape(shape)
	if len(dims) != 3 {
		return nil, invalidInput("expected [N,T,C] or [N,C,T] tensor, got shape %v", shape)
	}
	n64, t64, c64 := dims[0], dims[1], dims[2]
	if classesFirst {
		t64, c64 = c64, t64
	}
	if n64 <= 0 || t64 < 0 || c64 <= 0 {
		return nil, invalidInput("invalid tensor shape %v", shape)
	}
	perBatch, ok := CheckedSize(t64, c64)
	if !ok {
		return nil, invalidInput("invalid tensor shape %v", shape)
	}
	if _, ok := CheckedSize(n64, int64(perBatch)); !ok {
		return nil, invalidInput("invalid tensor shape %v", shape)
	}
	n, tDim, cDim := int(n64), int(t64), int(c64)
	if len(data) != n*perBatch {
		return nil, invalidInput("tensor data length %d does not match shape %v", len(data), shape)
	}

	out := make([]Matrix, n)
	for b := range n {
		start := b * perBatch
		m := AllocMatrix(tDim, cDim)
		if classesFirst {
			for t := range tDim {
				row := m.Row(t)
				for k := range cDim {
					row[k] = data[start+k*tDim+t]
				}
			}
		} else {
			copy(m.Data, data[start:start+perBatch])
		}
		out[b] = m
	}
	return out, nil
}
