package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  int
	}{
		{"zero", 0, 1024},
		{"negative", -5, 1024},
		{"below minimum", 100, 1024},
		{"minimum", 1024, 1024},
		{"one over", 1025, 2048},
		{"exact multiple", 3072, 3072},
		{"matrix of 80x6625", 80 * 6625, 530432},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sizeClass(tt.input))
		})
	}
}

func TestGetFloat32_LengthAndCapacity(t *testing.T) {
	for _, n := range []int{0, 5, 1024, 1500, 40 * 5} {
		buf := GetFloat32(n)
		assert.Len(t, buf, n)
		assert.GreaterOrEqual(t, cap(buf), sizeClass(n))
		PutFloat32(buf)
	}
}

func TestGetFloat32_NegativeSize(t *testing.T) {
	buf := GetFloat32(-1)
	assert.Empty(t, buf)
}

func TestPutFloat32_ForeignBuffers(t *testing.T) {
	// Buffers that did not come from the pool must not poison it.
	PutFloat32(nil)
	PutFloat32(make([]float32, 10))
	PutFloat32(make([]float32, 1500))

	buf := GetFloat32(2000)
	require.Len(t, buf, 2000)
	assert.GreaterOrEqual(t, cap(buf), 2048)
}

func TestPool_ReuseKeepsCapacity(t *testing.T) {
	for range 50 {
		buf := GetFloat32(3000)
		require.Len(t, buf, 3000)
		for i := range buf {
			buf[i] = float32(i)
		}
		PutFloat32(buf)
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			for i := range 100 {
				n := 100 + (w*37+i*11)%5000
				buf := GetFloat32(n)
				assert.Len(t, buf, n)
				buf[n-1] = 1
				PutFloat32(buf)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGetPutFloat32(b *testing.B) {
	for range b.N {
		buf := GetFloat32(80 * 97)
		PutFloat32(buf)
	}
}

func BenchmarkDirectAllocation(b *testing.B) {
	for range b.N {
		_ = make([]float32, 80*97)
	}
}
