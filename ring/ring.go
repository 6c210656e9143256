// Package ring implements consistent hashing with virtual nodes and the
// planner that computes range migration tasks when membership changes.
package ring

import (
	"sort"
	"sync"

	"go.miragespace.co/ringstore/spec/placement"
)

// Ring maps 64-bit positions to node addresses, one position per virtual
// node. Safe for concurrent readers; membership changes are expected to be
// driven sequentially by a single owner.
type Ring struct {
	mu           sync.RWMutex
	virtualNodes int
	positions    []uint64          // sorted
	owners       map[uint64]string // position -> node address
}

func New(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = placement.DefaultVirtualNodes
	}
	return &Ring{
		virtualNodes: virtualNodes,
		owners:       make(map[uint64]string),
	}
}

// AddNode inserts every virtual node of addr. On a position collision the
// last writer wins. Idempotent.
func (r *Ring) AddNode(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inserted := false
	for i := 0; i < r.virtualNodes; i++ {
		pos := placement.Hash([]byte(placement.VirtualKey(addr, i)))
		if _, occupied := r.owners[pos]; occupied {
			// re-add of the same node, or a genuine collision
			r.owners[pos] = addr
			continue
		}
		r.owners[pos] = addr
		r.positions = append(r.positions, pos)
		inserted = true
	}
	if inserted {
		sort.Slice(r.positions, func(i, j int) bool { return r.positions[i] < r.positions[j] })
	}
}

// RemoveNode deletes every entry owned by addr. Filtering by value rather
// than recomputing hashes keeps removal total even if an entry was inserted
// under a different hash revision. Idempotent.
func (r *Ring) RemoveNode(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filtered := r.positions[:0]
	for _, pos := range r.positions {
		if r.owners[pos] == addr {
			delete(r.owners, pos)
			continue
		}
		filtered = append(filtered, pos)
	}
	r.positions = filtered
}

// GetNode resolves the owner of key: the node at the smallest position at or
// after hash(key), wrapping to the smallest position on the ring. Returns
// false on an empty ring.
func (r *Ring) GetNode(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.positions) == 0 {
		return "", false
	}

	h := placement.Hash([]byte(key))
	idx := sort.Search(len(r.positions), func(i int) bool { return r.positions[i] >= h })
	if idx == len(r.positions) {
		idx = 0
	}
	return r.owners[r.positions[idx]], true
}

// Nodes returns the sorted distinct member addresses.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var nodes []string
	for _, addr := range r.owners {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		nodes = append(nodes, addr)
	}
	sort.Strings(nodes)
	return nodes
}

// Len returns the number of ring positions.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.positions)
}
