// Package task schedules cancelable work on the isolate pump. Every
// scheduled task gets an id the host can cancel from any goroutine, before
// the task starts or while it runs; exactly one of the completion and
// cancelation callbacks fires, never both.
package task

import (
	"sync"
	"sync/atomic"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/bpcreech/go-mini-racer/internal/engine"
)

type state int32

const (
	stateNotStarted state = iota
	stateRunning
	stateCompleted
	stateCanceled
)

// taskState is the per-task handshake between the pump goroutine and
// would-be cancelers. The mutex makes each transition atomic with the
// decision taken on its outcome.
type taskState struct {
	mu sync.Mutex
	s  state
}

// setRunningIfNotCanceled is phase one of task execution. Reports false if
// a canceler won the race before the task started.
func (t *taskState) setRunningIfNotCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.s == stateCanceled {
		return false
	}
	t.s = stateRunning
	return true
}

// setCompletedIfNotCanceled is phase three. Reports false if the task was
// canceled while it ran, in which case its result must be discarded.
func (t *taskState) setCompletedIfNotCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.s == stateCanceled {
		return false
	}
	t.s = stateCompleted
	return true
}

// cancel marks the task canceled. Reports whether the task was running at
// that moment, meaning the canceler must also unwind the script.
func (t *taskState) cancel() (wasRunning bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.s {
	case stateNotStarted:
		t.s = stateCanceled
	case stateRunning:
		t.s = stateCanceled
		wasRunning = true
	}
	// Completed and already-canceled tasks stay as they are.
	return wasRunning
}

// Runner hands out task ids and owns the id-to-state table. One Runner per
// context; ids are never reused.
type Runner struct {
	mgr *engine.Manager
	log *zap.Logger

	nextID atomic.Uint64

	mu    sync.Mutex
	tasks map[uint64]*taskState
}

func NewRunner(mgr *engine.Manager, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		mgr:   mgr,
		log:   log,
		tasks: make(map[uint64]*taskState),
	}
}

// Schedule enqueues run on the pump and returns its cancelation id. When the
// task finishes normally onCompleted receives its result; if it is canceled
// at any point, onCanceled fires instead and the result (if any) is dropped.
func Schedule[T any](r *Runner, run func(iso *v8.Isolate, ctx *v8.Context) T, onCompleted func(T), onCanceled func()) uint64 {
	id := r.nextID.Add(1)
	st := &taskState{}

	r.mu.Lock()
	r.tasks[id] = st
	r.mu.Unlock()

	ok := r.mgr.Submit(func(iso *v8.Isolate, ctx *v8.Context) {
		defer r.remove(id)

		// A stop that raced in ahead of this task cancels it: the pump keeps
		// draining cleanup work in that state, but scripts must not run.
		if r.mgr.JavaScriptStopped() {
			st.cancel()
		}
		if !st.setRunningIfNotCanceled() {
			onCanceled()
			return
		}
		result := run(iso, ctx)
		if st.setCompletedIfNotCanceled() {
			onCompleted(result)
			return
		}
		onCanceled()
	})
	if !ok {
		// Pump already stopped; report the task as canceled.
		r.remove(id)
		onCanceled()
	}
	return id
}

// Cancel cancels the task with the given id. Safe from any goroutine and
// idempotent; unknown or finished ids are ignored. A task caught mid-run
// also gets its script unwound.
func (r *Runner) Cancel(id uint64) {
	r.mu.Lock()
	st := r.tasks[id]
	r.mu.Unlock()

	if st == nil {
		return
	}
	if st.cancel() {
		r.mgr.TerminateExecution()
		r.log.Debug("canceled running task", zap.Uint64("id", id))
	}
}

func (r *Runner) remove(id uint64) {
	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}

// Pending returns the number of scheduled tasks that have not finished.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
