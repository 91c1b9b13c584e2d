// Package miniracer embeds V8 behind a thread-safe, handle-based facade.
// Each Context owns one isolate and the goroutine that pumps it; hosts talk
// to a context through 64-bit ids and value handles, never through engine
// objects directly.
package miniracer

import (
	"fmt"
	"sync"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/bpcreech/go-mini-racer/internal/engine"
	"github.com/bpcreech/go-mini-racer/internal/task"
	"github.com/bpcreech/go-mini-racer/internal/value"
)

// Handle is the host-visible view of a value. See the value package for the
// slot rules per kind.
type Handle = value.Handle

// Kind tags what a Handle carries.
type Kind = value.Kind

// Re-exported kind tags. The numeric values are part of the host contract.
const (
	KindInvalid           = value.KindInvalid
	KindNull              = value.KindNull
	KindBool              = value.KindBool
	KindInteger           = value.KindInteger
	KindDouble            = value.KindDouble
	KindString            = value.KindString
	KindArray             = value.KindArray
	KindDate              = value.KindDate
	KindSymbol            = value.KindSymbol
	KindObject            = value.KindObject
	KindUndefined         = value.KindUndefined
	KindFunction          = value.KindFunction
	KindSharedArrayBuffer = value.KindSharedArrayBuffer
	KindArrayBuffer       = value.KindArrayBuffer
	KindPromise           = value.KindPromise
	KindArrayBufferView   = value.KindArrayBufferView

	KindExecuteException    = value.KindExecuteException
	KindParseException      = value.KindParseException
	KindOOMException        = value.KindOOMException
	KindTimeoutException    = value.KindTimeoutException
	KindTerminatedException = value.KindTerminatedException
	KindValueException      = value.KindValueException
	KindKeyException        = value.KindKeyException
)

// Callback receives JS-to-host calls. It runs on the context's pump
// goroutine; the args handle is an array the host must free when done.
type Callback func(callbackID uint64, args *Handle)

// Context bundles everything one isolate needs: the pump, deferred
// collection, memory limits, value bookkeeping, cancelable tasks and the
// JS-to-host callback bridge.
type Context struct {
	log       *zap.Logger
	mgr       *engine.Manager
	collector *engine.Collector
	monitor   *engine.MemoryMonitor
	factory   *value.Factory
	registry  *value.Registry
	tasks     *task.Runner
	bridge    *callbackBridge
	eval      *Evaluator
	manip     *Manipulator
	heap      *HeapReporter

	closeOnce sync.Once
}

func newContext(cfg EngineConfig, cb Callback, log *zap.Logger) (*Context, error) {
	if log == nil {
		log = zap.NewNop()
	}

	mgr, err := engine.NewManager(engine.Options{
		HeapLimitBytes: cfg.MaxHeapBytes,
		Logger:         log,
	})
	if err != nil {
		return nil, err
	}

	c := &Context{log: log, mgr: mgr}
	c.collector = engine.NewCollector(mgr, log)
	c.monitor = engine.NewMemoryMonitor(mgr, log)
	if cfg.SoftMemoryLimit > 0 {
		c.monitor.SetSoftLimit(cfg.SoftMemoryLimit)
	}
	if cfg.HardMemoryLimit > 0 {
		c.monitor.SetHardLimit(cfg.HardMemoryLimit)
	}
	c.factory = value.NewFactory(c.collector, log)
	c.registry = value.NewRegistry(log)
	c.tasks = task.NewRunner(mgr, log)
	c.bridge = registerBridge(c.factory, c.registry, cb)
	c.eval = &Evaluator{
		factory:  c.factory,
		registry: c.registry,
		monitor:  c.monitor,
		tasks:    c.tasks,
		log:      log,
	}
	c.manip = &Manipulator{
		mgr:      mgr,
		factory:  c.factory,
		registry: c.registry,
		log:      log,
	}
	c.heap = &HeapReporter{
		mgr:     mgr,
		factory: c.factory,
	}

	if err := engine.Run(mgr, func(iso *v8.Isolate, vctx *v8.Context) error {
		if err := value.InstallHelpers(vctx); err != nil {
			return err
		}
		_, err := vctx.RunScript(objectHelperScript, "bootstrap_object.js")
		return err
	}).Get(); err != nil {
		c.monitor.Close()
		unregisterBridge(c.bridge)
		mgr.Dispose()
		return nil, fmt.Errorf("installing bootstrap helpers: %w", err)
	}

	return c, nil
}

// Close tears the context down: script execution stops, the callback bridge
// goes stale (in-flight JS callbacks become silent no-ops), pending deferred
// destruction drains, and the isolate is disposed. Idempotent.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		c.mgr.StopJavaScript()
		unregisterBridge(c.bridge)
		c.collector.Wait()
		c.monitor.Close()
		c.mgr.Dispose()
		c.log.Debug("context closed")
	})
}
