package scopestack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorMetrics(t *testing.T) {
	a := newTestAllocator(t, 1024, WithBacking(BackingHeap))

	m := a.Metrics()
	assert.Equal(t, AllocatorMetrics{
		Capacity:  1024,
		Remaining: 1024,
		Backing:   "heap",
	}, m)

	s := NewScratch(a)
	_, err := a.AllocBytes(100, 1)
	require.NoError(t, err)
	_, err = New(s, tracked{id: 1})
	require.NoError(t, err)
	c := s.Child()

	m = a.Metrics()
	assert.Equal(t, a.Used(), m.Used)
	assert.Greater(t, m.Used, 100)
	assert.Equal(t, 1024-m.Used, m.Remaining)
	assert.Equal(t, m.Used, m.Peak)
	assert.InDelta(t, float64(m.Used)/1024, m.Utilization, 1e-9)
	assert.Equal(t, 2, m.Depth)
	assert.Equal(t, 1, m.PendingDestructors)

	require.NoError(t, c.Close())
	require.NoError(t, s.Close())

	m = a.Metrics()
	assert.Zero(t, m.Used)
	assert.Zero(t, m.Depth)
	assert.Zero(t, m.PendingDestructors)
	assert.Greater(t, m.Peak, 100, "peak survives rewinds")
}

func TestAllocatorMetricsAfterRelease(t *testing.T) {
	a, err := NewLinearAllocator(1024)
	require.NoError(t, err)
	_, err = a.AllocBytes(100, 1)
	require.NoError(t, err)
	require.NoError(t, a.Release())

	m := a.Metrics()
	assert.Zero(t, m.Used)
	assert.Zero(t, m.Capacity)
	assert.Zero(t, m.Remaining)
	assert.Zero(t, m.Utilization)
	assert.Equal(t, 100, m.Peak)
	assert.Equal(t, "released", m.Backing)
}

func TestUtilizationEdgeCases(t *testing.T) {
	a := newTestAllocator(t, 64)
	assert.Zero(t, a.Utilization())

	_, err := a.AllocBytes(64, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.Utilization())
	assert.Zero(t, a.Remaining())
}

func BenchmarkMetrics(b *testing.B) {
	a := newTestAllocator(b, 1024)
	_, _ = a.AllocBytes(100, 1)

	b.Run("Used", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = a.Used()
		}
	})

	b.Run("Metrics", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = a.Metrics()
		}
	})
}
