package miniracer

import (
	"strings"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/bpcreech/go-mini-racer/internal/engine"
	"github.com/bpcreech/go-mini-racer/internal/task"
	"github.com/bpcreech/go-mini-racer/internal/value"
)

// scriptOrigin is the resource name attached to every evaluated script. It
// shows up in stack traces and parse errors.
const scriptOrigin = "<anonymous>"

// Evaluator compiles and runs code on the pump goroutine as cancelable
// tasks, classifying failures into the exception kinds the host expects.
type Evaluator struct {
	factory  *value.Factory
	registry *value.Registry
	monitor  *engine.MemoryMonitor
	tasks    *task.Runner
	log      *zap.Logger
}

// Schedule evaluates the code held by a string value. done receives the
// result handle, on the pump goroutine, exactly once: the outcome value on
// completion, or a terminated exception if the task is canceled.
func (e *Evaluator) Schedule(code *value.Value, done func(*Handle)) uint64 {
	return task.Schedule(e.tasks,
		func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
			return e.run(iso, vctx, code)
		},
		func(v *value.Value) { done(e.registry.Remember(v)) },
		func() { done(e.registry.Remember(e.terminated())) },
	)
}

// ScheduleSource is Schedule for code the host never wrapped in a value,
// such as a bundled module.
func (e *Evaluator) ScheduleSource(src string, done func(*Handle)) uint64 {
	return e.Schedule(e.factory.FromString(src, value.KindString), done)
}

func (e *Evaluator) terminated() *value.Value {
	return e.factory.FromString("execution terminated", value.KindTerminatedException)
}

// run executes on the pump goroutine.
func (e *Evaluator) run(iso *v8.Isolate, vctx *v8.Context, code *value.Value) *value.Value {
	if code == nil || code.Kind() != value.KindString {
		return e.factory.FromString("code is not a string", value.KindExecuteException)
	}
	src := string(code.Handle().Bytes)

	script, err := iso.CompileUnboundScript(src, scriptOrigin, v8.CompileOptions{})
	if err != nil {
		return e.factory.FromError(err, value.KindParseException)
	}

	result, err := script.Run(vctx)
	if err != nil {
		return e.classify(err)
	}
	return e.factory.FromJSValue(iso, vctx, result)
}

// ScheduleCall invokes a function value as a cancelable task, with the
// same completion and classification rules as Schedule. argv, when not nil,
// must be an array value whose elements become the call arguments.
func (e *Evaluator) ScheduleCall(fn, recv, argv *value.Value, done func(*Handle)) uint64 {
	return task.Schedule(e.tasks,
		func(iso *v8.Isolate, vctx *v8.Context) *value.Value {
			return e.call(iso, vctx, fn, recv, argv)
		},
		func(v *value.Value) { done(e.registry.Remember(v)) },
		func() { done(e.registry.Remember(e.terminated())) },
	)
}

func (e *Evaluator) call(iso *v8.Isolate, vctx *v8.Context, fn, recv, argv *value.Value) *value.Value {
	if fn == nil {
		return e.factory.FromString("function is not callable", value.KindExecuteException)
	}
	fnJS, err := fn.ToJSValue(iso, vctx)
	if err != nil {
		return e.factory.FromError(err, value.KindValueException)
	}
	f, err := fnJS.AsFunction()
	if err != nil {
		return e.factory.FromString("function is not callable", value.KindExecuteException)
	}

	recvJS := v8.Undefined(iso)
	if recv != nil && recv.Kind() != value.KindUndefined && recv.Kind() != value.KindNull {
		recvJS, err = recv.ToJSValue(iso, vctx)
		if err != nil {
			return e.factory.FromError(err, value.KindValueException)
		}
	}

	var args []v8.Valuer
	if argv != nil {
		if errv := e.unpackArgs(iso, vctx, argv, &args); errv != nil {
			return errv
		}
	}

	result, err := f.Call(recvJS, args...)
	if err != nil {
		return e.classify(err)
	}
	return e.factory.FromJSValue(iso, vctx, result)
}

// unpackArgs expands an array value into individual call arguments.
func (e *Evaluator) unpackArgs(iso *v8.Isolate, vctx *v8.Context, argv *value.Value, args *[]v8.Valuer) *value.Value {
	argJS, err := argv.ToJSValue(iso, vctx)
	if err != nil {
		return e.factory.FromError(err, value.KindValueException)
	}
	argObj, err := argJS.AsObject()
	if err != nil {
		return e.factory.FromString("argv is not an array", value.KindExecuteException)
	}
	lenVal, err := argObj.Get("length")
	if err != nil {
		return e.factory.FromError(err, value.KindValueException)
	}
	n := lenVal.Int32()
	for i := int32(0); i < n; i++ {
		a, err := argObj.GetIdx(uint32(i))
		if err != nil {
			return e.factory.FromError(err, value.KindValueException)
		}
		*args = append(*args, a)
	}
	return nil
}

// classify maps a script failure to its exception kind. Order matters: a
// hard memory trip also unwinds via termination, so the memory flag is
// checked first.
func (e *Evaluator) classify(err error) *value.Value {
	if e.monitor.HardLimitReached() {
		return e.factory.FromError(err, value.KindOOMException)
	}
	if isTerminated(err) {
		return e.factory.FromError(err, value.KindTerminatedException)
	}
	return e.factory.FromError(err, value.KindExecuteException)
}

// isTerminated recognizes the unwind error V8 reports after
// TerminateExecution.
func isTerminated(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "terminat")
}
