package miniracer

import (
	"sync"
	"sync/atomic"

	v8 "github.com/tommie/v8go"

	"github.com/bpcreech/go-mini-racer/internal/engine"
	"github.com/bpcreech/go-mini-racer/internal/value"
)

// The bridge registry is process wide and keyed by plain integers so that a
// JS callback function captures no pointer into its context. A function
// value can outlive its context inside the engine; once the context
// unregisters its bridge, late invocations find nothing and fall through as
// silent no-ops instead of touching freed state.
var (
	bridges      sync.Map // uint64 -> *callbackBridge
	nextBridgeID atomic.Uint64
)

type callbackBridge struct {
	id       uint64
	factory  *value.Factory
	registry *value.Registry
	cb       Callback
}

func registerBridge(factory *value.Factory, registry *value.Registry, cb Callback) *callbackBridge {
	b := &callbackBridge{
		id:       nextBridgeID.Add(1),
		factory:  factory,
		registry: registry,
		cb:       cb,
	}
	bridges.Store(b.id, b)
	return b
}

func unregisterBridge(b *callbackBridge) {
	bridges.Delete(b.id)
}

// makeJSCallback builds a function value that forwards its invocations to
// the context's host callback under the given callback id.
func (c *Context) makeJSCallback(callbackID uint64) *Handle {
	bridgeID := c.bridge.id
	return engine.Run(c.mgr, func(iso *v8.Isolate, vctx *v8.Context) *Handle {
		tmpl := v8.NewFunctionTemplate(iso, trampoline(bridgeID, callbackID))
		fn := tmpl.GetFunction(vctx)
		return c.registry.Remember(c.factory.FromJSValue(iso, vctx, fn.Value))
	}).Get()
}

// trampoline runs inside the engine whenever JS invokes the callback. It
// captures only the two ids; everything else is resolved per invocation.
func trampoline(bridgeID, callbackID uint64) func(*v8.FunctionCallbackInfo) *v8.Value {
	return func(info *v8.FunctionCallbackInfo) *v8.Value {
		raw, ok := bridges.Load(bridgeID)
		if !ok {
			return nil
		}
		b := raw.(*callbackBridge)
		if b.cb == nil {
			return nil
		}

		vctx := info.Context()
		iso := vctx.Isolate()

		arrVal, err := vctx.RunScript("[]", "callback_args.js")
		if err != nil {
			return nil
		}
		arr, err := arrVal.AsObject()
		if err != nil {
			return nil
		}
		for i, a := range info.Args() {
			if err := arr.SetIdx(uint32(i), a); err != nil {
				return nil
			}
		}

		args := b.factory.FromJSValue(iso, vctx, arrVal)
		b.cb(callbackID, b.registry.Remember(args))
		return v8.Undefined(iso)
	}
}
