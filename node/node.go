// Package node exposes a storage node's shard over HTTP: point operations
// for routed user traffic, and range/all exports that feed migration.
package node

import (
	"fmt"
	"net/http"
	"strconv"

	"go.miragespace.co/ringstore/spec/transfer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// KV is the storage surface the handlers require. memory.KV serves it
// directly; aof.DiskKV serves it with the mutation log underneath.
type KV interface {
	Put(key, value string) error
	Get(key string) (string, bool)
	Delete(key string) error
	RangeExport(start, end uint64) []transfer.Pair
	Export() []transfer.Pair
	Len() int
}

type Node struct {
	logger *zap.Logger
	store  KV
}

func New(logger *zap.Logger, store KV) *Node {
	return &Node{
		logger: logger,
		store:  store,
	}
}

func (n *Node) Mount(r *chi.Mux) {
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Post("/put", n.handlePut)
	r.Post("/del", n.handleDelete)
	r.Get("/get", n.handleGet)
	r.Get("/range", n.handleRange)
	r.Get("/all", n.handleAll)
	r.Get("/stats", n.handleStats)
}

// Handler returns a ready-to-serve mux with all routes mounted.
func (n *Node) Handler() http.Handler {
	r := chi.NewRouter()
	n.Mount(r)
	return r
}

func (n *Node) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PostFormValue("key")
	val := r.PostFormValue("val")

	// the export encoding is line-oriented, so newlines are rejected at the
	// write boundary instead of escaped on the wire
	if transfer.HasNewline(key) || transfer.HasNewline(val) {
		http.Error(w, transfer.ErrHasNewline.Error(), http.StatusBadRequest)
		return
	}

	if err := n.store.Put(key, val); err != nil {
		n.logger.Error("Error storing key", zap.String("key", key), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	n.logger.Debug("KV Put", zap.String("key", key))
	fmt.Fprint(w, "OK")
}

func (n *Node) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PostFormValue("key")

	if err := n.store.Delete(key); err != nil {
		n.logger.Error("Error deleting key", zap.String("key", key), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	n.logger.Debug("KV Delete", zap.String("key", key))
	fmt.Fprint(w, "OK")
}

func (n *Node) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	value, ok := n.store.Get(key)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	n.logger.Debug("KV Get", zap.String("key", key))
	fmt.Fprint(w, value)
}

// handleRange exports every pair whose key hashes onto (start, end]. The
// caller is usually pulling an arc it now owns, so this node is exporting
// keys it has already lost.
func (n *Node) handleRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("start") || !query.Has("end") {
		http.Error(w, "start and end are required", http.StatusBadRequest)
		return
	}
	start, err := strconv.ParseUint(query.Get("start"), 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid start: %v", err), http.StatusBadRequest)
		return
	}
	end, err := strconv.ParseUint(query.Get("end"), 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid end: %v", err), http.StatusBadRequest)
		return
	}

	pairs := n.store.RangeExport(start, end)
	n.logger.Debug("KV RangeExport",
		zap.Uint64("start", start),
		zap.Uint64("end", end),
		zap.Int("num_keys", len(pairs)))

	if err := transfer.Encode(w, pairs); err != nil {
		n.logger.Error("Error streaming range export", zap.Error(err))
	}
}

// handleAll exports the full shard contents. Each shard is consistent at the
// moment it is read; there is no cross-shard snapshot.
func (n *Node) handleAll(w http.ResponseWriter, r *http.Request) {
	pairs := n.store.Export()
	n.logger.Debug("KV Export", zap.Int("num_keys", len(pairs)))

	if err := transfer.Encode(w, pairs); err != nil {
		n.logger.Error("Error streaming export", zap.Error(err))
	}
}

func (n *Node) handleStats(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, strconv.Itoa(n.store.Len()))
}
