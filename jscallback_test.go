package miniracer

import (
	"testing"
	"time"
)

type callbackRecord struct {
	callbackID uint64
	args       *Handle
}

func TestMakeJSCallbackReturnsFunction(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	fn := MakeJSCallback(ctxID, 1)
	defer FreeValue(ctxID, fn)
	if fn.Kind != KindFunction {
		t.Fatalf("kind = %v, want function", fn.Kind)
	}
}

func TestJSCallbackViaCallFunction(t *testing.T) {
	records := make(chan callbackRecord, 1)
	ctxID := newTestContext(t, EngineConfig{}, func(callbackID uint64, args *Handle) {
		records <- callbackRecord{callbackID, args}
	})

	fn := MakeJSCallback(ctxID, 7)
	defer FreeValue(ctxID, fn)
	argv := evalWait(t, ctxID, "[1, 'two']")
	defer FreeValue(ctxID, argv)

	ch := make(chan *Handle, 1)
	CallFunction(ctxID, fn, nil, argv, func(h *Handle) { ch <- h })
	result := <-ch
	defer FreeValue(ctxID, result)

	select {
	case rec := <-records:
		if rec.callbackID != 7 {
			t.Errorf("callback id = %d, want 7", rec.callbackID)
		}
		if rec.args.Kind != KindArray {
			t.Errorf("args kind = %v, want array", rec.args.Kind)
		}
		idx := AllocIntVal(ctxID, 0, KindInteger)
		first := GetObjectItem(ctxID, rec.args, idx)
		if first.IntVal != 1 {
			t.Errorf("args[0] = %d, want 1", first.IntVal)
		}
		FreeValue(ctxID, first)
		FreeValue(ctxID, idx)
		FreeValue(ctxID, rec.args)
	case <-time.After(5 * time.Second):
		t.Fatal("host callback never fired")
	}

	if result.Kind != KindUndefined {
		t.Errorf("callback call result kind = %v, want undefined", result.Kind)
	}
}

func TestJSCallbackInvokedFromScript(t *testing.T) {
	records := make(chan callbackRecord, 4)
	ctxID := newTestContext(t, EngineConfig{}, func(callbackID uint64, args *Handle) {
		records <- callbackRecord{callbackID, args}
	})

	// Install the callback as a global so scripts can call it directly.
	global := evalWait(t, ctxID, "globalThis")
	defer FreeValue(ctxID, global)
	name := AllocStringVal(ctxID, "notify", KindString)
	defer FreeValue(ctxID, name)
	fn := MakeJSCallback(ctxID, 3)
	defer FreeValue(ctxID, fn)
	set := SetObjectItem(ctxID, global, name, fn)
	FreeValue(ctxID, set)

	res := evalWait(t, ctxID, "notify(10, 20); 'done'")
	defer FreeValue(ctxID, res)
	if res.Kind != KindString || string(res.Bytes) != "done" {
		t.Fatalf("script result = kind %v %q", res.Kind, res.Bytes)
	}

	select {
	case rec := <-records:
		if rec.callbackID != 3 {
			t.Errorf("callback id = %d, want 3", rec.callbackID)
		}
		idx := AllocIntVal(ctxID, 1, KindInteger)
		second := GetObjectItem(ctxID, rec.args, idx)
		if second.IntVal != 20 {
			t.Errorf("args[1] = %d, want 20", second.IntVal)
		}
		FreeValue(ctxID, second)
		FreeValue(ctxID, idx)
		FreeValue(ctxID, rec.args)
	case <-time.After(5 * time.Second):
		t.Fatal("host callback never fired")
	}
}

func TestNilCallbackIsDropped(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	global := evalWait(t, ctxID, "globalThis")
	defer FreeValue(ctxID, global)
	name := AllocStringVal(ctxID, "quiet", KindString)
	defer FreeValue(ctxID, name)
	fn := MakeJSCallback(ctxID, 1)
	defer FreeValue(ctxID, fn)
	FreeValue(ctxID, SetObjectItem(ctxID, global, name, fn))

	// With no host callback registered the invocation must still succeed
	// and return undefined into the script.
	res := evalWait(t, ctxID, "quiet(1) === undefined")
	defer FreeValue(ctxID, res)
	if res.Kind != KindBool || res.IntVal != 1 {
		t.Fatalf("dropped callback result = kind %v int %d", res.Kind, res.IntVal)
	}
}
