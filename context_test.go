package miniracer

import (
	"testing"
)

func TestContextIsolation(t *testing.T) {
	a := newTestContext(t, EngineConfig{}, nil)
	b := newTestContext(t, EngineConfig{}, nil)

	FreeValue(a, evalWait(t, a, "globalThis.mine = 'a'"))

	h := evalWait(t, b, "typeof mine")
	defer FreeValue(b, h)
	if got := string(h.Bytes); got != "undefined" {
		t.Fatalf("context b sees context a's global: %q", got)
	}
}

func TestOperationsAfterFreeContext(t *testing.T) {
	id, err := NewContext(nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	code := AllocStringVal(id, "1", KindString)
	FreeContext(id)

	// Everything keyed by the dead id degrades to the unknown-context path.
	if h := AllocIntVal(id, 1, KindInteger); h != nil {
		t.Error("AllocIntVal succeeded on a freed context")
	}
	if taskID := Eval(id, code, func(*Handle) { t.Error("callback fired") }); taskID != 0 {
		t.Error("Eval succeeded on a freed context")
	}
	FreeValue(id, code) // no-op, must not panic
}

func TestManyContexts(t *testing.T) {
	before := ContextCount()
	var ids []uint64
	for i := 0; i < 4; i++ {
		id := newTestContext(t, EngineConfig{}, nil)
		ids = append(ids, id)

		h := evalWait(t, id, "1 + 1")
		if h.IntVal != 2 {
			t.Fatalf("context %d broken", id)
		}
		FreeValue(id, h)
	}
	if got := ContextCount(); got != before+4 {
		t.Fatalf("ContextCount = %d, want %d", got, before+4)
	}
	for _, id := range ids {
		FreeContext(id)
	}
	if got := ContextCount(); got != before {
		t.Fatalf("ContextCount after frees = %d, want %d", got, before)
	}
}
