package gpu

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMap_Basic(t *testing.T) {
	m := newShardedMap[string, int](stringHasher)

	_, ok := m.Load("a")
	assert.False(t, ok)

	m.Store("a", 1)
	v, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	actual, loaded := m.LoadOrStore("a", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, actual)

	actual, loaded = m.LoadOrStore("b", 3)
	assert.False(t, loaded)
	assert.Equal(t, 3, actual)
	assert.Equal(t, 2, m.Len())

	v, ok = m.LoadAndDelete("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = m.LoadAndDelete("a")
	assert.False(t, ok)

	assert.ElementsMatch(t, []int{3}, m.Drain())
	assert.Equal(t, 0, m.Len())
}

func TestShardedMap_SpreadsHandles(t *testing.T) {
	m := newShardedMap[BufferHandle, int](handleHasher[BufferHandle])
	for i := 1; i <= shardCount; i++ {
		m.Store(BufferHandle(i), i)
	}
	for _, sh := range m.shards {
		assert.Len(t, sh.m, 1)
	}
}

func TestShardedMap_Concurrent(t *testing.T) {
	m := newShardedMap[BufferHandle, int](handleHasher[BufferHandle])

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h := BufferHandle(g*1000 + i)
				m.Store(h, i)
				_, _ = m.Load(h)
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 800, m.Len())
}

func TestAlignedSize(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 256},
		{1, 256},
		{64, 256},
		{256, 256},
		{257, 512},
		{1000, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlignedSize(tt.in), "AlignedSize(%d)", tt.in)
	}
}
