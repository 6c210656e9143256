// Package aof layers an append-only mutation log under the in-memory store,
// so a restarted node recovers its shard contents before accepting traffic.
// Mutations are serialized through a queue goroutine: appended to the log
// first, then applied to memory. Reads and exports are served from memory.
package aof

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"go.miragespace.co/ringstore/kv/memory"
	"go.miragespace.co/ringstore/spec/transfer"

	"github.com/tidwall/wal"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	LogDir = "wal"
)

type DiskKV struct {
	writeBarrier  sync.RWMutex
	logger        *zap.Logger
	mem           *memory.KV
	queue         chan mutationReq
	log           *wal.Log
	closeCh       chan struct{}
	closeWg       sync.WaitGroup
	closed        *atomic.Bool
	counter       uint64
	flushInterval time.Duration
}

type Config struct {
	Logger        *zap.Logger
	DataDir       string
	FlushInterval time.Duration
}

func (c Config) validate() error {
	if c.Logger == nil {
		return fmt.Errorf("nil Logger is invalid")
	}
	if c.DataDir == "" {
		return fmt.Errorf("empty DataDir is invalid")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("non-positive FlushInterval is invalid")
	}
	return nil
}

type mutationReq struct {
	mut mutation
	err chan error
}

func logPath(dir string) string {
	return filepath.Join(dir, LogDir)
}

func New(cfg Config) (*DiskKV, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	// store log to wal/ subdirectory to support future snapshot
	l, err := wal.Open(logPath(cfg.DataDir), &wal.Options{
		SegmentSize:      2 * 1024 * 1024, // 2MB
		SegmentCacheSize: 4,               // 8MB
		LogFormat:        wal.Binary,
		NoSync:           true,
		NoCopy:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening log: %w", err)
	}
	d := &DiskKV{
		logger:        cfg.Logger,
		mem:           memory.New(),
		queue:         make(chan mutationReq),
		log:           l,
		closeCh:       make(chan struct{}),
		closed:        atomic.NewBool(false),
		flushInterval: cfg.FlushInterval,
	}
	d.logger.Info("Using append only log for kv storage", zap.String("dir", cfg.DataDir))

	if err := d.replayLogs(); err != nil {
		return nil, err
	}

	d.closeWg.Add(1)

	return d, nil
}

func (d *DiskKV) Start() {
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()

	defer d.closeWg.Done()

	d.logger.Info("Periodically flushing logs to disk", zap.Duration("interval", d.flushInterval))

	dirty := false
	for {
		select {
		case <-d.closeCh:
			return
		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			if err := d.log.Sync(); err != nil {
				d.logger.Error("Error flushing logs periodically", zap.Error(err))
			}
		case m := <-d.queue:
			var mutError error
			if logError := d.appendLog(m.mut); logError == nil {
				mutError = d.applyMutation(m.mut)
			} else {
				d.logger.Error("Error appending mutation log",
					zap.String("mutation", m.mut.op.String()),
					zap.Error(logError))
				mutError = fs.ErrInvalid
			}
			dirty = true
			m.err <- mutError
		}
	}
}

func (d *DiskKV) Stop() {
	d.writeBarrier.Lock()
	defer d.writeBarrier.Unlock()

	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	close(d.closeCh)
	d.closeWg.Wait()

	d.logger.Info("Flushing logs to disk")

	if err := d.log.Sync(); err != nil {
		d.logger.Error("Error flushing logs to disk", zap.Error(err))
	}
	if err := d.log.Close(); err != nil {
		d.logger.Error("Error closing log file", zap.Error(err))
	}
}

func (d *DiskKV) applyMutation(mut mutation) error {
	switch mut.op {
	case opSet:
		return d.mem.Put(mut.key, mut.value)
	case opDelete:
		return d.mem.Delete(mut.key)
	default:
		return fmt.Errorf("unknown mutation op: %d", mut.op)
	}
}

func (d *DiskKV) enqueue(mut mutation) error {
	d.writeBarrier.RLock()
	defer d.writeBarrier.RUnlock()
	if d.closed.Load() {
		return fs.ErrClosed
	}

	req := mutationReq{
		err: make(chan error),
		mut: mut,
	}
	d.queue <- req
	return <-req.err
}

func (d *DiskKV) Put(key, value string) error {
	return d.enqueue(mutation{op: opSet, key: key, value: value})
}

func (d *DiskKV) Delete(key string) error {
	return d.enqueue(mutation{op: opDelete, key: key})
}

func (d *DiskKV) Get(key string) (string, bool) {
	return d.mem.Get(key)
}

func (d *DiskKV) RangeExport(start, end uint64) []transfer.Pair {
	return d.mem.RangeExport(start, end)
}

func (d *DiskKV) Export() []transfer.Pair {
	return d.mem.Export()
}

func (d *DiskKV) Len() int {
	return d.mem.Len()
}
