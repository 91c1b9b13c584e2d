package miniracer

import (
	"math"
	"testing"
)

func TestGetObjectItem(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	obj := evalWait(t, ctxID, "({a: 1, b: 'two'})")
	defer FreeValue(ctxID, obj)

	key := AllocStringVal(ctxID, "a", KindString)
	defer FreeValue(ctxID, key)
	h := GetObjectItem(ctxID, obj, key)
	defer FreeValue(ctxID, h)
	if h.Kind != KindInteger || h.IntVal != 1 {
		t.Fatalf("obj.a = kind %v int %d", h.Kind, h.IntVal)
	}

	key2 := AllocStringVal(ctxID, "b", KindString)
	defer FreeValue(ctxID, key2)
	h2 := GetObjectItem(ctxID, obj, key2)
	defer FreeValue(ctxID, h2)
	if h2.Kind != KindString || string(h2.Bytes) != "two" {
		t.Fatalf("obj.b = kind %v bytes %q", h2.Kind, h2.Bytes)
	}
}

func TestGetObjectItemMissingKey(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	obj := evalWait(t, ctxID, "({})")
	defer FreeValue(ctxID, obj)
	key := AllocStringVal(ctxID, "nope", KindString)
	defer FreeValue(ctxID, key)

	h := GetObjectItem(ctxID, obj, key)
	defer FreeValue(ctxID, h)
	if h.Kind != KindKeyException {
		t.Fatalf("kind = %v, want key exception", h.Kind)
	}
	if got := string(h.Bytes); got != "No such key" {
		t.Fatalf("message = %q", got)
	}
}

func TestSetAndDelObjectItem(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	obj := evalWait(t, ctxID, "({})")
	defer FreeValue(ctxID, obj)
	key := AllocStringVal(ctxID, "x", KindString)
	defer FreeValue(ctxID, key)
	val := AllocIntVal(ctxID, 9, KindInteger)
	defer FreeValue(ctxID, val)

	set := SetObjectItem(ctxID, obj, key, val)
	defer FreeValue(ctxID, set)
	if set.Kind != KindBool || set.IntVal != 1 {
		t.Fatalf("set returned kind %v int %d, want true", set.Kind, set.IntVal)
	}

	got := GetObjectItem(ctxID, obj, key)
	defer FreeValue(ctxID, got)
	if got.IntVal != 9 {
		t.Fatalf("obj.x = %d after set", got.IntVal)
	}

	del := DelObjectItem(ctxID, obj, key)
	defer FreeValue(ctxID, del)
	if del.Kind != KindBool || del.IntVal != 1 {
		t.Fatalf("del returned kind %v int %d, want true", del.Kind, del.IntVal)
	}

	missing := GetObjectItem(ctxID, obj, key)
	defer FreeValue(ctxID, missing)
	if missing.Kind != KindKeyException {
		t.Fatalf("obj.x still present after del (kind %v)", missing.Kind)
	}

	// Deleting again is a key exception too.
	again := DelObjectItem(ctxID, obj, key)
	defer FreeValue(ctxID, again)
	if again.Kind != KindKeyException {
		t.Fatalf("double del returned kind %v", again.Kind)
	}
}

func TestIndexedAccess(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	arr := evalWait(t, ctxID, "[10, 20, 30]")
	defer FreeValue(ctxID, arr)
	idx := AllocIntVal(ctxID, 1, KindInteger)
	defer FreeValue(ctxID, idx)

	h := GetObjectItem(ctxID, arr, idx)
	defer FreeValue(ctxID, h)
	if h.IntVal != 20 {
		t.Fatalf("arr[1] = %d", h.IntVal)
	}

	big := AllocIntVal(ctxID, 99, KindInteger)
	defer FreeValue(ctxID, big)
	miss := GetObjectItem(ctxID, arr, big)
	defer FreeValue(ctxID, miss)
	if miss.Kind != KindKeyException {
		t.Fatalf("arr[99] kind = %v, want key exception", miss.Kind)
	}

	neg := AllocIntVal(ctxID, -1, KindInteger)
	defer FreeValue(ctxID, neg)
	inv := GetObjectItem(ctxID, arr, neg)
	defer FreeValue(ctxID, inv)
	if inv.Kind != KindValueException {
		t.Fatalf("arr[-1] kind = %v, want value exception", inv.Kind)
	}
}

func TestGetIdentityHash(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	obj := evalWait(t, ctxID, "globalThis.idObj = {}")
	defer FreeValue(ctxID, obj)

	h1 := GetIdentityHash(ctxID, obj)
	defer FreeValue(ctxID, h1)
	h2 := GetIdentityHash(ctxID, obj)
	defer FreeValue(ctxID, h2)
	if h1.Kind != KindInteger || h1.IntVal == 0 {
		t.Fatalf("identity hash = kind %v int %d", h1.Kind, h1.IntVal)
	}
	if h1.IntVal != h2.IntVal {
		t.Fatalf("identity hash unstable: %d then %d", h1.IntVal, h2.IntVal)
	}

	other := evalWait(t, ctxID, "({})")
	defer FreeValue(ctxID, other)
	h3 := GetIdentityHash(ctxID, other)
	defer FreeValue(ctxID, h3)
	if h3.IntVal == h1.IntVal {
		t.Fatal("distinct objects share an identity hash")
	}

	notObj := AllocIntVal(ctxID, 5, KindInteger)
	defer FreeValue(ctxID, notObj)
	bad := GetIdentityHash(ctxID, notObj)
	defer FreeValue(ctxID, bad)
	if bad.Kind != KindValueException {
		t.Fatalf("identity hash of integer = kind %v", bad.Kind)
	}
}

func TestGetOwnPropertyNames(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	arr := evalWait(t, ctxID, "[1, 2, 3]")
	defer FreeValue(ctxID, arr)

	names := GetOwnPropertyNames(ctxID, arr)
	defer FreeValue(ctxID, names)
	if names.Kind != KindArray {
		t.Fatalf("names kind = %v, want array", names.Kind)
	}

	// An array's own property names are its indices plus "length".
	want := []string{"0", "1", "2", "length"}
	for i, w := range want {
		idx := AllocIntVal(ctxID, int64(i), KindInteger)
		name := GetObjectItem(ctxID, names, idx)
		if name.Kind != KindString || string(name.Bytes) != w {
			t.Errorf("names[%d] = kind %v %q, want %q", i, name.Kind, name.Bytes, w)
		}
		FreeValue(ctxID, name)
		FreeValue(ctxID, idx)
	}
}

func TestSpliceArray(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	arr := evalWait(t, ctxID, "globalThis.spliceMe = [1, 2, 3]")
	defer FreeValue(ctxID, arr)

	removed := SpliceArray(ctxID, arr, 1, 1, nil)
	defer FreeValue(ctxID, removed)
	if removed.Kind != KindArray {
		t.Fatalf("splice returned kind %v", removed.Kind)
	}

	idx := AllocIntVal(ctxID, 0, KindInteger)
	defer FreeValue(ctxID, idx)
	first := GetObjectItem(ctxID, removed, idx)
	defer FreeValue(ctxID, first)
	if first.IntVal != 2 {
		t.Fatalf("removed[0] = %d, want 2", first.IntVal)
	}

	length := evalWait(t, ctxID, "spliceMe.length")
	defer FreeValue(ctxID, length)
	if length.IntVal != 2 {
		t.Fatalf("array length after splice = %d, want 2", length.IntVal)
	}
}

func TestSpliceWithInsert(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	arr := evalWait(t, ctxID, "globalThis.insertMe = [1, 3]")
	defer FreeValue(ctxID, arr)
	two := AllocIntVal(ctxID, 2, KindInteger)
	defer FreeValue(ctxID, two)

	removed := SpliceArray(ctxID, arr, 1, 0, two)
	FreeValue(ctxID, removed)

	mid := evalWait(t, ctxID, "insertMe[1]")
	defer FreeValue(ctxID, mid)
	if mid.IntVal != 2 {
		t.Fatalf("insertMe[1] = %d, want 2", mid.IntVal)
	}
}

func TestDoubleKeys(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	obj := evalWait(t, ctxID, "({'1.5': 'half'})")
	defer FreeValue(ctxID, obj)
	frac := AllocDoubleVal(ctxID, 1.5, KindDouble)
	defer FreeValue(ctxID, frac)

	h := GetObjectItem(ctxID, obj, frac)
	defer FreeValue(ctxID, h)
	if h.Kind != KindString || string(h.Bytes) != "half" {
		t.Fatalf("obj[1.5] = kind %v bytes %q, want 'half'", h.Kind, h.Bytes)
	}

	// Integral doubles address elements like integer indices.
	arr := evalWait(t, ctxID, "[10, 20, 30]")
	defer FreeValue(ctxID, arr)
	one := AllocDoubleVal(ctxID, 1, KindDouble)
	defer FreeValue(ctxID, one)

	elem := GetObjectItem(ctxID, arr, one)
	defer FreeValue(ctxID, elem)
	if elem.IntVal != 20 {
		t.Fatalf("arr[1.0] = %d, want 20", elem.IntVal)
	}

	nan := AllocDoubleVal(ctxID, math.NaN(), KindDouble)
	defer FreeValue(ctxID, nan)
	bad := GetObjectItem(ctxID, arr, nan)
	defer FreeValue(ctxID, bad)
	if bad.Kind != KindValueException {
		t.Fatalf("arr[NaN] kind = %v, want value exception", bad.Kind)
	}
}

func TestSpliceOnPlainObject(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	obj := evalWait(t, ctxID, "({})")
	defer FreeValue(ctxID, obj)

	h := SpliceArray(ctxID, obj, 0, 1, nil)
	defer FreeValue(ctxID, h)
	if h.Kind != KindExecuteException {
		t.Fatalf("splice on plain object = kind %v, want execute exception", h.Kind)
	}
}

func TestArrayPush(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	arr := evalWait(t, ctxID, "[1, 2, 3]")
	defer FreeValue(ctxID, arr)
	val := AllocStringVal(ctxID, "four", KindString)
	defer FreeValue(ctxID, val)

	length := ArrayPush(ctxID, arr, val)
	defer FreeValue(ctxID, length)
	if length.Kind != KindInteger || length.IntVal != 4 {
		t.Fatalf("push returned kind %v int %d, want length 4", length.Kind, length.IntVal)
	}
}

func TestManipulatorRejectsNonObjects(t *testing.T) {
	ctxID := newTestContext(t, EngineConfig{}, nil)

	num := AllocIntVal(ctxID, 7, KindInteger)
	defer FreeValue(ctxID, num)
	key := AllocStringVal(ctxID, "a", KindString)
	defer FreeValue(ctxID, key)

	h := GetObjectItem(ctxID, num, key)
	defer FreeValue(ctxID, h)
	if h.Kind != KindValueException {
		t.Fatalf("get on integer = kind %v, want value exception", h.Kind)
	}
}
