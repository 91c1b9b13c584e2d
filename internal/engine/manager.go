// Package engine mediates all access to a V8 isolate through a single
// message-pump goroutine. Isolates are not thread safe, yet hosts call in
// from arbitrary goroutines; anything that wants to touch the isolate must
// get in line by submitting a task to the Manager.
package engine

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

// Pump states. Transitions only move forward: run -> noJS -> stop.
const (
	stateRun int32 = iota
	// stateNoJS keeps the pump draining tasks (cleanup work is itself a
	// task) but stops microtask checkpoints and unwinds in-flight scripts.
	stateNoJS
	stateStop
)

// taskQueueDepth bounds the pending task channel. Host goroutines block on
// submit when the pump falls this far behind.
const taskQueueDepth = 1024

// Options configures a Manager.
type Options struct {
	// HeapLimitBytes caps the isolate heap via V8 resource constraints.
	// Zero means the V8 default.
	HeapLimitBytes uint64
	Logger         *zap.Logger
}

// Manager owns one isolate, one V8 context and the pump goroutine that is
// the only code allowed to touch either. External callers submit callables;
// the pump executes them in submission order and runs a microtask
// checkpoint after each one.
type Manager struct {
	iso   *v8.Isolate
	ctx   *v8.Context
	tasks chan func()
	state atomic.Int32
	busy  atomic.Bool
	done  chan struct{}
	log   *zap.Logger

	disposeOnce sync.Once
}

// Future resolves exactly once with the result of a submitted callable.
type Future[T any] struct {
	ch   chan T
	once sync.Once
	val  T
}

// Get blocks until the pump has executed the callable and returns its
// result. Must not be called from the pump goroutine itself: the pump
// cannot wait on work only it can run.
func (f *Future[T]) Get() T {
	f.once.Do(func() { f.val = <-f.ch })
	return f.val
}

func resolved[T any](val T) *Future[T] {
	f := &Future[T]{ch: make(chan T, 1)}
	f.ch <- val
	return f
}

// NewManager starts the pump goroutine and blocks until the isolate and
// context exist. The pump goroutine is locked to its OS thread for the
// lifetime of the isolate.
func NewManager(opts Options) (*Manager, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := &Manager{
		tasks: make(chan func(), taskQueueDepth),
		done:  make(chan struct{}),
		log:   log,
	}

	ready := make(chan error, 1)
	go m.pump(opts, ready)

	if err := <-ready; err != nil {
		return nil, fmt.Errorf("starting isolate pump: %w", err)
	}
	return m, nil
}

func (m *Manager) pump(opts Options, ready chan<- error) {
	// All isolate access happens on this goroutine, on this thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(m.done)

	if opts.HeapLimitBytes > 0 {
		m.iso = v8.NewIsolate(v8.WithResourceConstraints(opts.HeapLimitBytes/2, opts.HeapLimitBytes))
	} else {
		m.iso = v8.NewIsolate()
	}
	m.ctx = v8.NewContext(m.iso)
	ready <- nil

	m.log.Debug("isolate pump started")

	for fn := range m.tasks {
		if m.state.Load() == stateNoJS {
			// V8 consumes the termination flag each time a script unwinds.
			// Re-arm it so a script queued behind the stop cannot run.
			m.iso.TerminateExecution()
		}
		m.busy.Store(true)
		fn()
		m.busy.Store(false)

		state := m.state.Load()
		if state == stateRun {
			m.ctx.PerformMicrotaskCheckpoint()
		}
		if state == stateStop {
			break
		}
	}

	// Resolve whatever is still queued (collector batches, stray futures)
	// before the isolate goes away.
	for {
		select {
		case fn := <-m.tasks:
			fn()
		default:
			m.log.Debug("isolate pump stopped")
			return
		}
	}
}

// Submit enqueues a callable for the pump goroutine and returns without
// waiting. Reports false once the manager is stopped.
func (m *Manager) Submit(fn func(iso *v8.Isolate, ctx *v8.Context)) bool {
	if m.state.Load() == stateStop {
		return false
	}
	m.tasks <- func() { fn(m.iso, m.ctx) }
	return true
}

// Run schedules fn on the pump goroutine and returns a future for its
// result. Callers on the pump goroutine itself (engine callbacks) must use
// Submit instead and never await: awaiting their own queue self-deadlocks.
func Run[T any](m *Manager, fn func(iso *v8.Isolate, ctx *v8.Context) T) *Future[T] {
	f := &Future[T]{ch: make(chan T, 1)}
	ok := m.Submit(func(iso *v8.Isolate, ctx *v8.Context) {
		f.ch <- fn(iso, ctx)
	})
	if !ok {
		var zero T
		return resolved(zero)
	}
	return f
}

// TerminateExecution unwinds any script running on the pump goroutine. Per
// V8, this is the one call that is safe from any thread.
func (m *Manager) TerminateExecution() {
	m.iso.TerminateExecution()
}

// StopJavaScript halts script execution but keeps the pump draining tasks,
// so that deferred destruction still runs. Idempotent.
func (m *Manager) StopJavaScript() {
	if !m.state.CompareAndSwap(stateRun, stateNoJS) {
		return
	}
	m.TerminateExecution()
	// Nudge the loop so it observes the new state immediately.
	m.nudge()
	m.log.Debug("javascript stopped")
}

// JavaScriptStopped reports whether StopJavaScript has been called. Safe
// from any goroutine; task schedulers check it so scripts queued behind the
// stop never start.
func (m *Manager) JavaScriptStopped() bool {
	return m.state.Load() != stateRun
}

// Dispose joins the pump goroutine and releases the isolate. The manager
// must not be used afterwards.
func (m *Manager) Dispose() {
	m.disposeOnce.Do(func() {
		m.StopJavaScript()
		m.state.Store(stateStop)
		m.nudge()
		<-m.done
		m.ctx.Close()
		m.iso.Dispose()
		m.log.Debug("isolate disposed")
	})
}

func (m *Manager) nudge() {
	select {
	case m.tasks <- func() {}:
	default:
		// Queue full: the pump is already awake and will see the state.
	}
}

// Busy reports whether the pump goroutine is currently inside a task. Used
// by the memory monitor to avoid sampling an idle isolate.
func (m *Manager) Busy() bool {
	return m.busy.Load()
}

// HeapStatistics samples the isolate heap. V8 permits reading statistics
// from other threads, which the memory watchdog relies on.
func (m *Manager) HeapStatistics() v8.HeapStatistics {
	return m.iso.GetHeapStatistics()
}
