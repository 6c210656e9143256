package memory

import (
	"fmt"
	"sync"
	"testing"

	"go.miragespace.co/ringstore/spec/placement"
	"go.miragespace.co/ringstore/spec/transfer"

	"github.com/stretchr/testify/assert"
)

func TestPointOperations(t *testing.T) {
	as := assert.New(t)

	kv := New()

	_, ok := kv.Get("user_id_1")
	as.False(ok)

	as.NoError(kv.Put("user_id_1", "Alice"))
	v, ok := kv.Get("user_id_1")
	as.True(ok)
	as.Equal("Alice", v)

	as.NoError(kv.Put("user_id_1", "Bob"))
	v, _ = kv.Get("user_id_1")
	as.Equal("Bob", v)

	as.NoError(kv.Delete("user_id_1"))
	_, ok = kv.Get("user_id_1")
	as.False(ok)

	// deleting a missing key is a no-op
	as.NoError(kv.Delete("user_id_1"))
}

func TestRangeExportMatchesLocalFilter(t *testing.T) {
	as := assert.New(t)

	kv := New()
	num := 1000
	for i := 0; i < num; i++ {
		kv.Put(fmt.Sprintf("key_%d", i), fmt.Sprintf("value_%d", i))
	}
	as.Equal(num, kv.Len())

	arcs := [][2]uint64{
		{0, ^uint64(0)},
		{^uint64(0), 0},                    // wrapping
		{1 << 60, 1 << 61},                 // plain
		{^uint64(0) - (1 << 61), 1 << 61},  // wrapping
		{placement.Hash([]byte("key_42")), placement.Hash([]byte("key_42"))}, // whole circle
	}

	for _, arc := range arcs {
		start, end := arc[0], arc[1]

		expected := make(map[string]string)
		for i := 0; i < num; i++ {
			key := fmt.Sprintf("key_%d", i)
			if placement.Between(start, placement.Hash([]byte(key)), end) {
				expected[key] = fmt.Sprintf("value_%d", i)
			}
		}

		got := make(map[string]string)
		for _, p := range kv.RangeExport(start, end) {
			got[p.Key] = p.Value
		}
		as.Equal(expected, got, "arc (%d, %d]", start, end)
	}
}

func TestExportAll(t *testing.T) {
	as := assert.New(t)

	kv := New()
	expected := make(map[string]transfer.Pair)
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key_%d", i)
		kv.Put(key, "v")
		expected[key] = transfer.Pair{Key: key, Value: "v"}
	}

	pairs := kv.Export()
	as.Len(pairs, len(expected))
	for _, p := range pairs {
		as.Equal(expected[p.Key], p)
	}
}

func TestConcurrentAccess(t *testing.T) {
	as := assert.New(t)

	kv := New()
	var wg sync.WaitGroup
	workers := 8
	perWorker := 500

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("worker_%d_key_%d", w, i)
				kv.Put(key, "v")
				kv.Get(key)
				if i%2 == 0 {
					kv.Delete(key)
				}
			}
		}(w)
	}
	// exports run concurrently with the writers
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kv.Export()
			kv.RangeExport(0, 1<<63)
		}()
	}
	wg.Wait()

	as.Equal(workers*perWorker/2, kv.Len())
}
