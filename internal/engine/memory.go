package engine

import (
	"sync/atomic"
	"time"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// sampleInterval is how often the watchdog reads heap statistics while a
// task is on the pump. Coarse enough to be cheap, fine enough to catch an
// allocation loop well before the isolate hits its own hard ceiling.
const sampleInterval = 5 * time.Millisecond

// MemoryMonitor enforces soft and hard heap limits on the isolate.
//
// The v8go binding exposes no GC-epilogue hook, so instead of piggybacking
// on garbage collection the monitor samples heap statistics from a watchdog
// goroutine while scripts run. A soft breach sets a flag the host can poll;
// a hard breach additionally terminates the running script, which the
// evaluator then reports as an oom exception.
type MemoryMonitor struct {
	mgr *Manager
	log *zap.Logger

	softLimit atomic.Uint64
	hardLimit atomic.Uint64
	softHit   atomic.Bool
	hardHit   atomic.Bool

	stop chan struct{}
	done chan struct{}
}

func NewMemoryMonitor(mgr *Manager, log *zap.Logger) *MemoryMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	mm := &MemoryMonitor{
		mgr:  mgr,
		log:  log,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go mm.watch()
	return mm
}

// SetSoftLimit sets the soft heap limit in bytes and clears the soft flag.
// Zero disables the limit.
func (mm *MemoryMonitor) SetSoftLimit(limit uint64) {
	mm.softLimit.Store(limit)
	mm.softHit.Store(false)
}

// SetHardLimit sets the hard heap limit in bytes and clears the hard flag.
// Zero disables the limit.
func (mm *MemoryMonitor) SetHardLimit(limit uint64) {
	mm.hardLimit.Store(limit)
	mm.hardHit.Store(false)
}

func (mm *MemoryMonitor) SoftLimitReached() bool { return mm.softHit.Load() }
func (mm *MemoryMonitor) HardLimitReached() bool { return mm.hardHit.Load() }

// ApplyLowMemoryNotification forces an immediate sample and gives the
// isolate a microtask checkpoint pass so freed objects settle.
func (mm *MemoryMonitor) ApplyLowMemoryNotification() {
	mm.sample()
	mm.mgr.Submit(func(*v8.Isolate, *v8.Context) {})
}

// Close stops the watchdog goroutine.
func (mm *MemoryMonitor) Close() {
	close(mm.stop)
	<-mm.done
}

func (mm *MemoryMonitor) watch() {
	defer close(mm.done)
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-mm.stop:
			return
		case <-ticker.C:
			if mm.softLimit.Load() == 0 && mm.hardLimit.Load() == 0 {
				continue
			}
			if !mm.mgr.Busy() {
				continue
			}
			mm.sample()
		}
	}
}

func (mm *MemoryMonitor) sample() {
	used := mm.mgr.HeapStatistics().UsedHeapSize

	if soft := mm.softLimit.Load(); soft > 0 && used > soft {
		if mm.softHit.CompareAndSwap(false, true) {
			mm.log.Info("soft memory limit reached",
				zap.Uint64("used", used), zap.Uint64("limit", soft))
		}
	}

	if hard := mm.hardLimit.Load(); hard > 0 && used > hard {
		if mm.hardHit.CompareAndSwap(false, true) {
			mm.log.Warn("hard memory limit reached, terminating execution",
				zap.Uint64("used", used), zap.Uint64("limit", hard))
		}
		// Keep terminating while over the limit: the script may have been
		// between protected regions when the first signal landed.
		mm.mgr.TerminateExecution()
	}
}
