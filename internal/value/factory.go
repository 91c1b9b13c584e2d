package value

import (
	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/bpcreech/go-mini-racer/internal/engine"
)

// copyBufferScript installs the helper the factory uses to read ArrayBuffer
// contents. v8go exposes raw bytes only for SharedArrayBuffers, so plain
// buffers and views are copied into a scratch SharedArrayBuffer first (the
// same trick the engine's binary transfer path uses).
const copyBufferScript = `
globalThis.__mr_copyBuffer = function(b) {
	var src;
	if (ArrayBuffer.isView(b)) {
		src = new Uint8Array(b.buffer, b.byteOffset, b.byteLength);
	} else {
		src = new Uint8Array(b);
	}
	var sab = new SharedArrayBuffer(src.byteLength);
	new Uint8Array(sab).set(src);
	return sab;
};
`

// InstallHelpers sets up the factory's JS helpers in the given context.
// Pump goroutine only; called once during context bootstrap.
func InstallHelpers(ctx *v8.Context) error {
	_, err := ctx.RunScript(copyBufferScript, "bootstrap_value.js")
	return err
}

// Factory is the sole constructor of Values. Every Value it builds is bound
// to the deferred collector so engine-owned pieces are destroyed on the
// pump goroutine regardless of which thread drops the Value.
type Factory struct {
	collector *engine.Collector
	log       *zap.Logger
}

func NewFactory(collector *engine.Collector, log *zap.Logger) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{collector: collector, log: log}
}

// FromBool builds a bool Value using the int slot as 0/1.
func (f *Factory) FromBool(val bool) *Value {
	v := &Value{collector: f.collector}
	v.handle.Kind = KindBool
	if val {
		v.handle.IntVal = 1
	}
	return v
}

// FromInt builds an integer-slot Value of the given kind.
func (f *Factory) FromInt(val int64, kind Kind) *Value {
	v := &Value{collector: f.collector}
	v.handle.Kind = kind
	v.handle.IntVal = val
	return v
}

// FromDouble builds a double-slot Value of the given kind.
func (f *Factory) FromDouble(val float64, kind Kind) *Value {
	v := &Value{collector: f.collector}
	v.handle.Kind = kind
	v.handle.DoubleVal = val
	return v
}

// FromString copies the bytes into a Value-owned buffer. Used for strings
// and for every exception kind.
func (f *Factory) FromString(val string, kind Kind) *Value {
	v := &Value{collector: f.collector}
	v.handle.Kind = kind
	v.handle.Bytes = append([]byte(nil), val...)
	return v
}

// FromError formats err the way the evaluator reports script failures and
// stores it under the given exception kind.
func (f *Factory) FromError(err error, kind Kind) *Value {
	return f.FromString(FormatException(err), kind)
}

// FromJSValue infers the kind of an engine value and captures whatever the
// host needs: an inline preview, a persistent reference, or both. Pump
// goroutine only.
func (f *Factory) FromJSValue(iso *v8.Isolate, ctx *v8.Context, val *v8.Value) *Value {
	v := &Value{collector: f.collector}

	switch {
	case val.IsNull():
		v.handle.Kind = KindNull
	case val.IsUndefined():
		v.handle.Kind = KindUndefined
	case val.IsInt32():
		v.handle.Kind = KindInteger
		v.handle.IntVal = int64(val.Int32())
	case val.IsBigInt():
		v.handle.Kind = KindInteger
		v.handle.IntVal = val.BigInt().Int64()
	case val.IsNumber():
		v.handle.Kind = KindDouble
		v.handle.DoubleVal = val.Number()
	case val.IsBoolean():
		v.handle.Kind = KindBool
		if val.Boolean() {
			v.handle.IntVal = 1
		}
	case val.IsFunction():
		v.handle.Kind = KindFunction
		v.jsVal = val
	case val.IsSymbol():
		v.handle.Kind = KindSymbol
		v.jsVal = val
	case val.IsDate():
		// A date's preview is its valueOf, milliseconds since epoch.
		v.handle.Kind = KindDate
		v.handle.DoubleVal = val.Number()
	case val.IsString():
		v.handle.Kind = KindString
		v.handle.Bytes = []byte(val.String())
	case val.IsSharedArrayBuffer():
		f.captureSharedBuffer(v, val)
	case val.IsArrayBufferView():
		f.captureBufferCopy(v, iso, ctx, val, KindArrayBufferView)
	case val.IsArrayBuffer():
		f.captureBufferCopy(v, iso, ctx, val, KindArrayBuffer)
	case val.IsPromise():
		v.handle.Kind = KindPromise
		v.jsVal = val
	case val.IsArray():
		v.handle.Kind = KindArray
		v.jsVal = val
	case val.IsObject():
		v.handle.Kind = KindObject
		v.jsVal = val
	default:
		v.handle.Kind = KindInvalid
	}

	return v
}

// captureSharedBuffer keeps a live view into the shared backing store. The
// release callback goes through the collector so the store outlives every
// host read of the handle.
func (f *Factory) captureSharedBuffer(v *Value, val *v8.Value) {
	v.handle.Kind = KindSharedArrayBuffer
	v.jsVal = val

	data, release, err := val.SharedArrayBufferGetContents()
	if err != nil {
		f.log.Warn("reading shared array buffer contents", zap.Error(err))
		return
	}
	v.handle.Bytes = data
	v.release = release
}

// captureBufferCopy snapshots a plain buffer or view into Value-owned
// memory via the __mr_copyBuffer helper.
func (f *Factory) captureBufferCopy(v *Value, iso *v8.Isolate, ctx *v8.Context, val *v8.Value, kind Kind) {
	v.handle.Kind = kind
	v.jsVal = val

	fnVal, err := ctx.Global().Get("__mr_copyBuffer")
	if err != nil {
		f.log.Warn("buffer copy helper missing", zap.Error(err))
		return
	}
	fn, err := fnVal.AsFunction()
	if err != nil {
		f.log.Warn("buffer copy helper is not a function", zap.Error(err))
		return
	}
	tmp, err := fn.Call(v8.Undefined(iso), val)
	if err != nil {
		f.log.Warn("copying buffer contents", zap.Error(err))
		return
	}
	data, release, err := tmp.SharedArrayBufferGetContents()
	if err != nil {
		f.log.Warn("reading copied buffer contents", zap.Error(err))
		return
	}
	v.handle.Bytes = append([]byte(nil), data...)
	release()
}
