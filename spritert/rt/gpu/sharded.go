package gpu

import (
	"hash/fnv"
	"reflect"
	"sync"
)

// shardCount must be a power of two so the shard index is a mask.
const (
	shardCount = 16
	shardMask  = shardCount - 1
)

type hasher[K any] func(K) uint64

func stringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func handleHasher[H ~uint64](h H) uint64 {
	return uint64(h)
}

func typeHasher(t reflect.Type) uint64 {
	return stringHasher(t.PkgPath() + "." + t.String())
}

// shardedMap is a concurrent map split into independently locked shards so
// unrelated keys do not contend on one mutex.
type shardedMap[K comparable, V any] struct {
	shards [shardCount]*mapShard[K, V]
	hash   hasher[K]
}

type mapShard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func newShardedMap[K comparable, V any](hash hasher[K]) *shardedMap[K, V] {
	s := &shardedMap[K, V]{hash: hash}
	for i := range s.shards {
		s.shards[i] = &mapShard[K, V]{m: make(map[K]V)}
	}
	return s
}

func (s *shardedMap[K, V]) shard(key K) *mapShard[K, V] {
	return s.shards[s.hash(key)&shardMask]
}

func (s *shardedMap[K, V]) Load(key K) (V, bool) {
	sh := s.shard(key)
	sh.mu.RLock()
	v, ok := sh.m[key]
	sh.mu.RUnlock()
	return v, ok
}

func (s *shardedMap[K, V]) Store(key K, value V) {
	sh := s.shard(key)
	sh.mu.Lock()
	sh.m[key] = value
	sh.mu.Unlock()
}

// LoadOrStore returns the existing value for key if present. Otherwise it
// stores value and returns it. loaded reports which happened.
func (s *shardedMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if v, ok := sh.m[key]; ok {
		return v, true
	}
	sh.m[key] = value
	return value, false
}

func (s *shardedMap[K, V]) LoadAndDelete(key K) (V, bool) {
	sh := s.shard(key)
	sh.mu.Lock()
	v, ok := sh.m[key]
	if ok {
		delete(sh.m, key)
	}
	sh.mu.Unlock()
	return v, ok
}

func (s *shardedMap[K, V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}

// Drain removes every entry and returns them. Order is unspecified.
func (s *shardedMap[K, V]) Drain() []V {
	var out []V
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, v := range sh.m {
			out = append(out, v)
			delete(sh.m, k)
		}
		sh.mu.Unlock()
	}
	return out
}
