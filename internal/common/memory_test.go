package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMemoryStats(t *testing.T) {
	stats := GetMemoryStats()
	assert.Positive(t, stats.Alloc)
	assert.Positive(t, stats.TotalAlloc)
	assert.Positive(t, stats.Sys)

	str := stats.String()
	assert.Contains(t, str, "Alloc:")
	assert.Contains(t, str, "KB")
}

func TestAllocatedSince(t *testing.T) {
	before := MemoryStats{TotalAlloc: 1000, Mallocs: 10}
	after := MemoryStats{TotalAlloc: 4096, Mallocs: 25}
	b, n := after.AllocatedSince(before)
	assert.Equal(t, uint64(3096), b)
	assert.Equal(t, uint64(15), n)
}

func BenchmarkMemoryStatsRetrieval(b *testing.B) {
	for range b.N {
		GetMemoryStats()
	}
}
