package main

import (
	"strconv"
	"time"

	miniracer "github.com/bpcreech/go-mini-racer"
)

// await blocks for a scheduled task's result, canceling it if the timeout
// elapses first. Cancellation still delivers a handle (a terminated
// exception), so the wait always resolves.
func await(ctxID uint64, timeout time.Duration, schedule func(done func(*miniracer.Handle)) uint64) *miniracer.Handle {
	ch := make(chan *miniracer.Handle, 1)
	taskID := schedule(func(h *miniracer.Handle) { ch <- h })

	if timeout <= 0 {
		return <-ch
	}
	select {
	case h := <-ch:
		return h
	case <-time.After(timeout):
		miniracer.CancelTask(ctxID, taskID)
		return <-ch
	}
}

// evalSource evaluates plain script source and blocks for the result.
func evalSource(ctxID uint64, src string, timeout time.Duration) *miniracer.Handle {
	code := miniracer.AllocStringVal(ctxID, src, miniracer.KindString)
	defer miniracer.FreeValue(ctxID, code)
	return await(ctxID, timeout, func(done func(*miniracer.Handle)) uint64 {
		return miniracer.Eval(ctxID, code, done)
	})
}

// renderHandle formats a result handle for display. The second return
// reports whether the handle is an exception.
func renderHandle(h *miniracer.Handle) (string, bool) {
	if h == nil {
		return "<no result>", true
	}
	if h.Kind.IsException() {
		return string(h.Bytes), true
	}

	switch h.Kind {
	case miniracer.KindUndefined:
		return "undefined", false
	case miniracer.KindNull:
		return "null", false
	case miniracer.KindBool:
		return strconv.FormatBool(h.IntVal != 0), false
	case miniracer.KindInteger:
		return strconv.FormatInt(h.IntVal, 10), false
	case miniracer.KindDouble:
		return strconv.FormatFloat(h.DoubleVal, 'g', -1, 64), false
	case miniracer.KindString:
		return string(h.Bytes), false
	case miniracer.KindDate:
		return time.UnixMilli(int64(h.DoubleVal)).UTC().Format(time.RFC3339), false
	case miniracer.KindArrayBuffer, miniracer.KindArrayBufferView, miniracer.KindSharedArrayBuffer:
		return "[" + h.Kind.String() + " " + strconv.Itoa(len(h.Bytes)) + " bytes]", false
	default:
		return "[" + h.Kind.String() + "]", false
	}
}
