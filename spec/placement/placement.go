// Package placement defines the placement contract shared by the router and
// every storage node: the 64-bit hash, the virtual node naming scheme, the
// wrap-aware arc predicate, and the shard addressing of a node's local store.
//
// The hash doubles as part of the wire contract: the arcs a router passes to
// /range are positions under this exact function, so the router and every
// node must agree bit-for-bit.
package placement

import "strconv"

const (
	// DefaultVirtualNodes is the ring-wide virtual node count per member.
	DefaultVirtualNodes = 100

	// NumShards is the fixed number of independent shards in a node's store.
	NumShards = 16
)

const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x100000001b3
)

// Hash places virtual nodes and user keys on the 64-bit circle.
// FNV-1a alone has poor avalanche on short structured inputs like
// "127.0.0.1:8081#17", which makes virtual nodes cluster; the finalizer
// restores uniform distribution.
func Hash(b []byte) uint64 {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// VirtualKey derives the ring identity of one virtual node of addr.
func VirtualKey(addr string, index int) string {
	return addr + "#" + strconv.Itoa(index)
}

// Between reports whether h lies on the half-open arc (start, end].
// Equal bounds cover the entire circle.
func Between(start, h, end uint64) bool {
	if end > start {
		return start < h && h <= end
	}
	return h > start || h <= end
}

// ShardID maps a key to the shard holding it. Stable across processes for a
// fixed NumShards.
func ShardID(key string) int {
	return int(Hash([]byte(key)) % NumShards)
}
