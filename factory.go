package miniracer

import (
	"strings"
	"sync"
	"sync/atomic"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"
)

var (
	initOnce       sync.Once
	singleThreaded bool
	icuPath        string
	snapshotPath   string
)

// InitV8 applies process-wide V8 settings. First call wins; later calls are
// no-ops, including the implicit one from NewContext. ICU data and the
// startup snapshot are baked into the engine build, so those paths are
// recorded for compatibility but not consumed.
func InitV8(flags, icuDataPath, snapshotBlobPath string) {
	initOnce.Do(func() {
		singleThreaded = strings.Contains(flags, "--single-threaded")
		icuPath = icuDataPath
		snapshotPath = snapshotBlobPath
		if flags != "" {
			v8.SetFlags(strings.Fields(flags)...)
		}
	})
}

// SingleThreaded reports whether init flags requested the single-threaded
// platform.
func SingleThreaded() bool {
	return singleThreaded
}

var (
	contexts      sync.Map // uint64 -> *Context
	nextContextID atomic.Uint64
)

// NewContext creates a context with default settings. cb receives JS-to-host
// callback invocations; nil means they are dropped.
func NewContext(cb Callback) (uint64, error) {
	return NewContextWithConfig(EngineConfig{}, cb, nil)
}

// NewContextWithConfig creates a context with explicit engine settings and
// returns its id. The id, not the context, is what hosts hold; every other
// entry point takes it as the first argument.
func NewContextWithConfig(cfg EngineConfig, cb Callback, log *zap.Logger) (uint64, error) {
	InitV8("", "", "")

	c, err := newContext(cfg, cb, log)
	if err != nil {
		return 0, err
	}
	id := nextContextID.Add(1)
	contexts.Store(id, c)
	return id, nil
}

// FreeContext tears down the context with the given id. Unknown ids are
// ignored; double frees are therefore harmless.
func FreeContext(id uint64) {
	raw, ok := contexts.LoadAndDelete(id)
	if !ok {
		return
	}
	raw.(*Context).Close()
}

// ContextCount returns the number of live contexts.
func ContextCount() int {
	n := 0
	contexts.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func contextByID(id uint64) *Context {
	raw, ok := contexts.Load(id)
	if !ok {
		return nil
	}
	return raw.(*Context)
}
