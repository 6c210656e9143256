// Package memory implements a node's local shard of the key space: a fixed
// array of independent maps, one mutex each, keyed by the shared placement
// hash.
package memory

import (
	"sync"

	"go.miragespace.co/ringstore/spec/placement"
	"go.miragespace.co/ringstore/spec/transfer"
)

type shard struct {
	mu   sync.RWMutex
	data map[string]string
}

// KV partitions keys across placement.NumShards shards. Point operations
// take a single shard lock; exports take each shard lock in turn, so an
// export is consistent per shard but never across shards.
type KV struct {
	shards [placement.NumShards]shard
}

func New() *KV {
	kv := &KV{}
	for i := range kv.shards {
		kv.shards[i].data = make(map[string]string)
	}
	return kv
}

func (kv *KV) shardFor(key string) *shard {
	return &kv.shards[placement.ShardID(key)]
}

func (kv *KV) Put(key, value string) error {
	s := kv.shardFor(key)
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (kv *KV) Get(key string) (string, bool) {
	s := kv.shardFor(key)
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()
	return value, ok
}

func (kv *KV) Delete(key string) error {
	s := kv.shardFor(key)
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// RangeExport returns every stored pair whose key hashes onto (start, end].
func (kv *KV) RangeExport(start, end uint64) []transfer.Pair {
	var pairs []transfer.Pair
	for i := range kv.shards {
		s := &kv.shards[i]
		s.mu.RLock()
		for key, value := range s.data {
			if placement.Between(start, placement.Hash([]byte(key)), end) {
				pairs = append(pairs, transfer.Pair{Key: key, Value: value})
			}
		}
		s.mu.RUnlock()
	}
	return pairs
}

// Export returns every stored pair.
func (kv *KV) Export() []transfer.Pair {
	var pairs []transfer.Pair
	for i := range kv.shards {
		s := &kv.shards[i]
		s.mu.RLock()
		for key, value := range s.data {
			pairs = append(pairs, transfer.Pair{Key: key, Value: value})
		}
		s.mu.RUnlock()
	}
	return pairs
}

// Len returns the total number of stored keys.
func (kv *KV) Len() int {
	total := 0
	for i := range kv.shards {
		s := &kv.shards[i]
		s.mu.RLock()
		total += len(s.data)
		s.mu.RUnlock()
	}
	return total
}
