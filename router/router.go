// Package router resolves keys to their owning storage node and drives the
// range migrations that follow membership changes. All ring state is local
// to the router; each router instance has its own view of the cluster.
package router

import (
	"context"
	"errors"
	"fmt"

	"go.miragespace.co/ringstore/ring"
	"go.miragespace.co/ringstore/util"

	"github.com/zhangyunhao116/skipmap"
	"go.uber.org/zap"
)

var (
	// ErrNoNodes is returned when an operation needs an owner but the ring
	// is empty.
	ErrNoNodes = errors.New("router: no servers in the ring")
	// ErrKeyNotFound is the routed form of a node's 404.
	ErrKeyNotFound = errors.New("router: key not found")
)

type Router struct {
	logger  *zap.Logger
	ring    *ring.Ring
	clients *skipmap.StringMap[*nodeClient]
}

type Config struct {
	Logger *zap.Logger
	// VirtualNodes per member; zero selects the ring-wide default.
	VirtualNodes int
}

func New(cfg Config) (*Router, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Router{
		logger:  cfg.Logger,
		ring:    ring.New(cfg.VirtualNodes),
		clients: skipmap.NewString[*nodeClient](),
	}, nil
}

// clientFor returns the cached connection handle for addr, creating one on
// first use. addr must already be canonical.
func (r *Router) clientFor(addr string) *nodeClient {
	c, _ := r.clients.LoadOrStoreLazy(addr, func() *nodeClient {
		return newNodeClient(addr)
	})
	return c
}

// Close releases every pooled connection.
func (r *Router) Close() {
	r.releaseIdle()
}

// releaseIdle drops idle connections accumulated by a finished migration.
func (r *Router) releaseIdle() {
	r.clients.Range(func(addr string, c *nodeClient) bool {
		c.Close()
		return true
	})
}

// Seed adds an already-populated cluster member to this router's view
// without driving any migration.
func (r *Router) Seed(addr string) (string, error) {
	canonical, err := util.CanonicalizeAddr(addr)
	if err != nil {
		return "", err
	}
	r.ring.AddNode(canonical)
	return canonical, nil
}

// Nodes returns the current members of this router's ring view.
func (r *Router) Nodes() []string {
	return r.ring.Nodes()
}

// Owner resolves the node currently owning key.
func (r *Router) Owner(key string) (string, error) {
	addr, ok := r.ring.GetNode(key)
	if !ok {
		return "", ErrNoNodes
	}
	return addr, nil
}

// Set stores key on its owning node and returns the owner's address.
func (r *Router) Set(ctx context.Context, key, value string) (string, error) {
	target, err := r.Owner(key)
	if err != nil {
		return "", err
	}
	if err := r.clientFor(target).Put(ctx, key, value); err != nil {
		return target, fmt.Errorf("writing to %s: %w", target, err)
	}
	return target, nil
}

// Get fetches key from its owning node. A node-side miss surfaces as
// ErrKeyNotFound.
func (r *Router) Get(ctx context.Context, key string) (string, string, error) {
	target, err := r.Owner(key)
	if err != nil {
		return "", "", err
	}
	value, found, err := r.clientFor(target).Get(ctx, key)
	if err != nil {
		return "", target, fmt.Errorf("reading from %s: %w", target, err)
	}
	if !found {
		return "", target, ErrKeyNotFound
	}
	return value, target, nil
}

// Delete removes key from its owning node.
func (r *Router) Delete(ctx context.Context, key string) (string, error) {
	target, err := r.Owner(key)
	if err != nil {
		return "", err
	}
	if err := r.clientFor(target).Delete(ctx, key); err != nil {
		return target, fmt.Errorf("deleting from %s: %w", target, err)
	}
	return target, nil
}

// NodeStats is one row of a cluster stats report.
type NodeStats struct {
	Addr      string
	Keys      int
	Reachable bool
}

// Stats queries every member for its key count.
func (r *Router) Stats(ctx context.Context) []NodeStats {
	var stats []NodeStats
	for _, addr := range r.ring.Nodes() {
		keys, err := r.clientFor(addr).Stats(ctx)
		if err != nil {
			r.logger.Warn("Error querying node stats", zap.String("node", addr), zap.Error(err))
			stats = append(stats, NodeStats{Addr: addr})
			continue
		}
		stats = append(stats, NodeStats{Addr: addr, Keys: keys, Reachable: true})
	}
	return stats
}
