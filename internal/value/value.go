package value

import (
	"fmt"

	v8 "github.com/tommie/v8go"

	"github.com/bpcreech/go-mini-racer/internal/engine"
)

// Handle is the stable, host-readable view of a Value. The host reads the
// slot matching Kind and treats the struct's address as an opaque
// identifier; it must surrender the handle exactly once via the registry.
//
// Bytes is non-nil only for kinds that expose a buffer (strings, exception
// messages, array buffers) and stays valid for the whole lifetime of the
// owning Value.
type Handle struct {
	IntVal    int64
	DoubleVal float64
	Bytes     []byte
	Kind      Kind
}

// Len returns the preview's byte length.
func (h *Handle) Len() int {
	return len(h.Bytes)
}

// Value is the owning carrier behind a Handle. It may retain a persistent
// reference to the engine-side value and, for shared array buffers, a live
// view into the backing store with its release callback.
type Value struct {
	handle    Handle
	collector *engine.Collector

	// jsVal and release are isolate-owned and must only be touched on the
	// pump goroutine; destruction routes them through the collector.
	jsVal   *v8.Value
	release func()
}

// Handle returns the POD view. Its address identifies this Value.
func (v *Value) Handle() *Handle {
	return &v.handle
}

// Kind returns the kind tag.
func (v *Value) Kind() Kind {
	return v.handle.Kind
}

// HasJSValue reports whether a persistent engine value is retained.
func (v *Value) HasJSValue() bool {
	return v.jsVal != nil
}

// destroy hands engine-owned resources to the deferred collector. Values
// without such resources need no teardown; their buffers are plain Go
// memory.
func (v *Value) destroy() {
	if v.jsVal == nil && v.release == nil {
		return
	}
	jsVal, release := v.jsVal, v.release
	v.collector.Collect(func() {
		if release != nil {
			release()
		}
		_ = jsVal
	})
	v.jsVal = nil
	v.release = nil
}

// ToJSValue rehydrates the engine-side value. Pump goroutine only. If a
// persistent reference is retained it is returned directly; otherwise a
// fresh value is built from the preview.
func (v *Value) ToJSValue(iso *v8.Isolate, ctx *v8.Context) (*v8.Value, error) {
	if v.jsVal != nil {
		return v.jsVal, nil
	}

	switch v.handle.Kind {
	case KindNull:
		return v8.Null(iso), nil
	case KindUndefined:
		return v8.Undefined(iso), nil
	case KindBool:
		return v8.NewValue(iso, v.handle.IntVal != 0)
	case KindInteger:
		return v8.NewValue(iso, v.handle.IntVal)
	case KindDouble:
		return v8.NewValue(iso, v.handle.DoubleVal)
	case KindDate:
		return ctx.RunScript(fmt.Sprintf("new Date(%g)", v.handle.DoubleVal), "date.js")
	case KindString:
		return v8.NewValue(iso, string(v.handle.Bytes))
	default:
		if v.handle.Kind.IsException() {
			return v8.NewValue(iso, string(v.handle.Bytes))
		}
		return v8.Undefined(iso), nil
	}
}
