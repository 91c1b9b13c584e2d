package engine

import (
	"sync"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// Collector releases isolate-owned resources on the pump goroutine.
//
// Code that wants to drop a persistent value reference or release a
// SharedArrayBuffer view usually doesn't run on the pump goroutine, and
// touching isolate-owned objects off that thread is not safe. Callers hand
// their release thunk to the collector instead; it batches thunks and runs
// one pump task per non-empty batch.
type Collector struct {
	mgr *Manager
	log *zap.Logger

	mu         sync.Mutex
	done       *sync.Cond
	garbage    []func()
	collecting bool
}

func NewCollector(mgr *Manager, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Collector{mgr: mgr, log: log}
	c.done = sync.NewCond(&c.mu)
	return c
}

// Collect hands a release thunk to the collector. Safe from any thread,
// including the pump goroutine itself (the thunk runs later, never inline).
func (c *Collector) Collect(release func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.garbage = append(c.garbage, release)

	if c.collecting {
		// A collection task is already pending; it will chain into this
		// batch.
		return
	}
	c.enqueueBatchLocked()
}

func (c *Collector) enqueueBatchLocked() {
	c.collecting = true
	c.mgr.Submit(func(*v8.Isolate, *v8.Context) { c.drain() })
}

// drain runs on the pump goroutine. It swaps the batch out, releases it,
// and re-enqueues itself if more garbage arrived in the meantime.
func (c *Collector) drain() {
	c.mu.Lock()
	batch := c.garbage
	c.garbage = nil
	c.mu.Unlock()

	for _, release := range batch {
		release()
	}
	c.log.Debug("collected isolate objects", zap.Int("count", len(batch)))

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.garbage) == 0 {
		c.collecting = false
		c.done.Broadcast()
		return
	}
	c.enqueueBatchLocked()
}

// Wait blocks until no collection is in flight and the queue is empty.
// Called during context teardown, before the pump stops for good.
func (c *Collector) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.collecting {
		c.done.Wait()
	}
}
