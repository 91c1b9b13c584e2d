package miniracer

import (
	"math"
	"strconv"

	"fortio.org/safecast"
	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/bpcreech/go-mini-racer/internal/engine"
	"github.com/bpcreech/go-mini-racer/internal/value"
)

// objectHelperScript backs the manipulator ops v8go has no direct call for.
// The identity mint hands out stable per-object ids the way V8's own
// GetIdentityHash does, scoped to this context.
const objectHelperScript = `
globalThis.__mr_identityHash = (function() {
	var ids = new WeakMap();
	var next = 1;
	return function(obj) {
		if (!ids.has(obj)) {
			ids.set(obj, next++);
		}
		return ids.get(obj);
	};
})();
globalThis.__mr_ownPropertyNames = function(obj) {
	return Object.getOwnPropertyNames(obj);
};
`

// Manipulator reads and writes object properties on behalf of the host.
// Every op runs as a pump task and resolves synchronously for the caller;
// failures come back as exception-kind values, never Go errors.
type Manipulator struct {
	mgr      *engine.Manager
	factory  *value.Factory
	registry *value.Registry
	log      *zap.Logger
}

func (m *Manipulator) valueErr(msg string) *value.Value {
	return m.factory.FromString(msg, value.KindValueException)
}

func (m *Manipulator) keyErr() *value.Value {
	return m.factory.FromString("No such key", value.KindKeyException)
}

// remember wraps a pump-side op so it runs on the pump goroutine and its
// result is registered before the caller unblocks.
func (m *Manipulator) remember(op func(iso *v8.Isolate, vctx *v8.Context) *value.Value) *Handle {
	return engine.Run(m.mgr, func(iso *v8.Isolate, vctx *v8.Context) *Handle {
		return m.registry.Remember(op(iso, vctx))
	}).Get()
}

// asObject resolves a host value to a live JS object.
func (m *Manipulator) asObject(iso *v8.Isolate, vctx *v8.Context, obj *value.Value) (*v8.Object, *value.Value) {
	if obj == nil {
		return nil, m.valueErr("no such value")
	}
	jsv, err := obj.ToJSValue(iso, vctx)
	if err != nil {
		return nil, m.factory.FromError(err, value.KindValueException)
	}
	o, err := jsv.AsObject()
	if err != nil {
		return nil, m.valueErr("not an object")
	}
	return o, nil
}

// propertyKey extracts the property name or array index from a key value's
// preview. Objects are string or index addressed; doubles coerce the way JS
// property keys do, integral-in-range as an index, the rest as their decimal
// string. Anything else is refused.
func (m *Manipulator) propertyKey(key *value.Value) (name string, idx uint32, isIdx bool, errv *value.Value) {
	if key == nil {
		return "", 0, false, m.valueErr("invalid key")
	}
	switch key.Kind() {
	case value.KindString:
		return string(key.Handle().Bytes), 0, false, nil
	case value.KindInteger:
		idx, err := safecast.Conv[uint32](key.Handle().IntVal)
		if err != nil {
			return "", 0, false, m.valueErr("invalid key")
		}
		return "", idx, true, nil
	case value.KindDouble:
		d := key.Handle().DoubleVal
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return "", 0, false, m.valueErr("invalid key")
		}
		if d == math.Trunc(d) && d >= 0 && d <= math.MaxUint32 {
			return "", uint32(d), true, nil
		}
		return strconv.FormatFloat(d, 'f', -1, 64), 0, false, nil
	default:
		return "", 0, false, m.valueErr("invalid key")
	}
}

// IdentityHash returns a stable integer id for an object.
func (m *Manipulator) IdentityHash(obj *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, obj)
		if errv != nil {
			return errv
		}
		res, err := vctx.Global().MethodCall("__mr_identityHash", o)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		return m.factory.FromJSValue(iso, vctx, res)
	})
}

// OwnPropertyNames returns an array of the object's own property names.
func (m *Manipulator) OwnPropertyNames(obj *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, obj)
		if errv != nil {
			return errv
		}
		res, err := vctx.Global().MethodCall("__mr_ownPropertyNames", o)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		return m.factory.FromJSValue(iso, vctx, res)
	})
}

// GetItem reads a property. A missing key is a key exception, matching
// mapping semantics on the host side.
func (m *Manipulator) GetItem(obj, key *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, obj)
		if errv != nil {
			return errv
		}
		name, idx, isIdx, errv := m.propertyKey(key)
		if errv != nil {
			return errv
		}

		if isIdx {
			if !o.HasIdx(idx) {
				return m.keyErr()
			}
			res, err := o.GetIdx(idx)
			if err != nil {
				return m.factory.FromError(err, value.KindValueException)
			}
			return m.factory.FromJSValue(iso, vctx, res)
		}

		if !o.Has(name) {
			return m.keyErr()
		}
		res, err := o.Get(name)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		return m.factory.FromJSValue(iso, vctx, res)
	})
}

// SetItem writes a property and returns true on success.
func (m *Manipulator) SetItem(obj, key, val *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, obj)
		if errv != nil {
			return errv
		}
		name, idx, isIdx, errv := m.propertyKey(key)
		if errv != nil {
			return errv
		}
		if val == nil {
			return m.valueErr("no such value")
		}
		jsv, err := val.ToJSValue(iso, vctx)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}

		if isIdx {
			err = o.SetIdx(idx, jsv)
		} else {
			err = o.Set(name, jsv)
		}
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		return m.factory.FromBool(true)
	})
}

// DelItem removes a property and returns the boolean delete result. A
// missing key is a key exception.
func (m *Manipulator) DelItem(obj, key *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, obj)
		if errv != nil {
			return errv
		}
		name, idx, isIdx, errv := m.propertyKey(key)
		if errv != nil {
			return errv
		}

		if isIdx {
			if !o.HasIdx(idx) {
				return m.keyErr()
			}
			return m.factory.FromBool(o.DeleteIdx(idx))
		}
		if !o.Has(name) {
			return m.keyErr()
		}
		return m.factory.FromBool(o.Delete(name))
	})
}

// Splice calls Array.prototype.splice on the value and returns the removed
// elements.
func (m *Manipulator) Splice(arr *value.Value, start, deleteCount int32, insert *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, arr)
		if errv != nil {
			return errv
		}

		startVal, err := v8.NewValue(iso, start)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		countVal, err := v8.NewValue(iso, deleteCount)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		args := []v8.Valuer{startVal, countVal}

		if insert != nil {
			jsv, err := insert.ToJSValue(iso, vctx)
			if err != nil {
				return m.factory.FromError(err, value.KindValueException)
			}
			args = append(args, jsv)
		}

		// A missing or throwing splice is a script failure, not a bad handle.
		res, err := o.MethodCall("splice", args...)
		if err != nil {
			return m.factory.FromError(err, value.KindExecuteException)
		}
		return m.factory.FromJSValue(iso, vctx, res)
	})
}

// Push appends to an array and returns its new length.
func (m *Manipulator) Push(arr, val *value.Value) *Handle {
	return m.remember(func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
		o, errv := m.asObject(iso, vctx, arr)
		if errv != nil {
			return errv
		}
		if val == nil {
			return m.valueErr("no such value")
		}
		jsv, err := val.ToJSValue(iso, vctx)
		if err != nil {
			return m.factory.FromError(err, value.KindValueException)
		}
		res, err := o.MethodCall("push", jsv)
		if err != nil {
			return m.factory.FromError(err, value.KindExecuteException)
		}
		return m.factory.FromJSValue(iso, vctx, res)
	})
}
