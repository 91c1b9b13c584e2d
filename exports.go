package miniracer

import (
	v8 "github.com/tommie/v8go"

	"github.com/bpcreech/go-mini-racer/internal/task"
	"github.com/bpcreech/go-mini-racer/internal/value"
)

// The package-level entry points below are keyed by context id and handle
// pointer, mirroring a C export surface one to one. Every function
// tolerates an unknown context id by returning its zero result; handles are
// resolved through the context's registry and never trusted raw.

// Eval schedules evaluation of the code held by a string value handle.
// Returns the task id for cancellation; zero for an unknown context.
func Eval(ctxID uint64, code *Handle, done func(*Handle)) uint64 {
	c := contextByID(ctxID)
	if c == nil {
		return 0
	}
	return c.eval.Schedule(c.registry.FromHandle(code), done)
}

// EvalModule bundles ES-module source into a plain script and schedules it
// like Eval. Source without module syntax runs as-is.
func EvalModule(ctxID uint64, src string, done func(*Handle)) uint64 {
	c := contextByID(ctxID)
	if c == nil {
		return 0
	}
	bundled, err := TransformModule(src)
	if err != nil {
		done(c.registry.Remember(c.factory.FromError(err, value.KindParseException)))
		return 0
	}
	return c.eval.ScheduleSource(bundled, done)
}

// CallFunction schedules a call of a function value, like Eval.
func CallFunction(ctxID uint64, fn, recv, argv *Handle, done func(*Handle)) uint64 {
	c := contextByID(ctxID)
	if c == nil {
		return 0
	}
	return c.eval.ScheduleCall(
		c.registry.FromHandle(fn),
		c.registry.FromHandle(recv),
		c.registry.FromHandle(argv),
		done,
	)
}

// CancelTask cancels a scheduled or running task. Idempotent.
func CancelTask(ctxID, taskID uint64) {
	if c := contextByID(ctxID); c != nil {
		c.tasks.Cancel(taskID)
	}
}

// FreeValue surrenders a value handle.
func FreeValue(ctxID uint64, h *Handle) {
	if c := contextByID(ctxID); c != nil {
		c.registry.Forget(h)
	}
}

// ValueCount returns the number of outstanding value handles.
func ValueCount(ctxID uint64) int {
	c := contextByID(ctxID)
	if c == nil {
		return 0
	}
	return c.registry.Count()
}

// AllocIntVal builds a host-initialized integer-slot value.
func AllocIntVal(ctxID uint64, val int64, kind Kind) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.registry.Remember(c.factory.FromInt(val, kind))
}

// AllocDoubleVal builds a host-initialized double-slot value.
func AllocDoubleVal(ctxID uint64, val float64, kind Kind) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.registry.Remember(c.factory.FromDouble(val, kind))
}

// AllocStringVal builds a host-initialized string-slot value. This is how
// code reaches Eval: allocate a string value, pass its handle.
func AllocStringVal(ctxID uint64, val string, kind Kind) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.registry.Remember(c.factory.FromString(val, kind))
}

// reportTask runs produce through the task runner so the request is
// cancelable like any other.
func (c *Context) reportTask(produce func() *value.Value, done func(*Handle)) uint64 {
	return task.Schedule(c.tasks,
		func(*v8.Isolate, *v8.Context) *value.Value { return produce() },
		func(v *value.Value) { done(c.registry.Remember(v)) },
		func() { done(c.registry.Remember(c.eval.terminated())) },
	)
}

// HeapStats schedules a summary heap statistics report, delivered as a JSON
// string value.
func HeapStats(ctxID uint64, done func(*Handle)) uint64 {
	c := contextByID(ctxID)
	if c == nil {
		return 0
	}
	return c.reportTask(c.heap.Stats, done)
}

// HeapSnapshot schedules an extended heap statistics report.
func HeapSnapshot(ctxID uint64, done func(*Handle)) uint64 {
	c := contextByID(ctxID)
	if c == nil {
		return 0
	}
	return c.reportTask(c.heap.Snapshot, done)
}

// SetSoftMemoryLimit arms the soft heap limit. Zero disables it.
func SetSoftMemoryLimit(ctxID uint64, limit uint64) {
	if c := contextByID(ctxID); c != nil {
		c.monitor.SetSoftLimit(limit)
	}
}

// SetHardMemoryLimit arms the hard heap limit. Zero disables it.
func SetHardMemoryLimit(ctxID uint64, limit uint64) {
	if c := contextByID(ctxID); c != nil {
		c.monitor.SetHardLimit(limit)
	}
}

// SoftMemoryLimitReached reports whether the soft limit tripped since it
// was last set.
func SoftMemoryLimitReached(ctxID uint64) bool {
	c := contextByID(ctxID)
	return c != nil && c.monitor.SoftLimitReached()
}

// HardMemoryLimitReached reports whether the hard limit tripped since it
// was last set.
func HardMemoryLimitReached(ctxID uint64) bool {
	c := contextByID(ctxID)
	return c != nil && c.monitor.HardLimitReached()
}

// LowMemoryNotification asks the engine to settle freed memory now.
func LowMemoryNotification(ctxID uint64) {
	if c := contextByID(ctxID); c != nil {
		c.monitor.ApplyLowMemoryNotification()
	}
}

// MakeJSCallback builds a function value that forwards invocations to the
// context's host callback under callbackID.
func MakeJSCallback(ctxID uint64, callbackID uint64) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.makeJSCallback(callbackID)
}

// GetIdentityHash returns a stable integer id for an object value.
func GetIdentityHash(ctxID uint64, obj *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.IdentityHash(c.registry.FromHandle(obj))
}

// GetOwnPropertyNames returns an array of an object's own property names.
func GetOwnPropertyNames(ctxID uint64, obj *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.OwnPropertyNames(c.registry.FromHandle(obj))
}

// GetObjectItem reads a property of an object value.
func GetObjectItem(ctxID uint64, obj, key *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.GetItem(c.registry.FromHandle(obj), c.registry.FromHandle(key))
}

// SetObjectItem writes a property of an object value.
func SetObjectItem(ctxID uint64, obj, key, val *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.SetItem(
		c.registry.FromHandle(obj),
		c.registry.FromHandle(key),
		c.registry.FromHandle(val),
	)
}

// DelObjectItem removes a property of an object value.
func DelObjectItem(ctxID uint64, obj, key *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.DelItem(c.registry.FromHandle(obj), c.registry.FromHandle(key))
}

// SpliceArray splices an array value and returns the removed elements.
func SpliceArray(ctxID uint64, arr *Handle, start, deleteCount int32, insert *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.Splice(c.registry.FromHandle(arr), start, deleteCount, c.registry.FromHandle(insert))
}

// ArrayPush appends to an array value and returns its new length.
func ArrayPush(ctxID uint64, arr, val *Handle) *Handle {
	c := contextByID(ctxID)
	if c == nil {
		return nil
	}
	return c.manip.Push(c.registry.FromHandle(arr), c.registry.FromHandle(val))
}

// Version returns the embedded engine version string.
func Version() string {
	return v8.Version()
}

// IsUsingSandbox reports whether the engine was built with the V8 sandbox.
// The embedded build does not enable it.
func IsUsingSandbox() bool {
	return false
}
