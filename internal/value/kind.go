// Package value carries JavaScript values across the host boundary. A Value
// owns at most one engine-side resource (a persistent value reference or a
// SharedArrayBuffer view) plus an inline preview the host can read without
// touching the isolate. Handles are the POD view of a Value; their pointer
// address is the opaque identity the host passes back in.
package value

// Kind tags what a Value carries. The numeric values are part of the host
// contract and must not be renumbered.
type Kind uint8

const (
	KindInvalid   Kind = 0
	KindNull      Kind = 1
	KindBool      Kind = 2
	KindInteger   Kind = 3
	KindDouble    Kind = 4
	KindString    Kind = 5
	KindArray     Kind = 6
	// 7 was a hash kind, long deprecated.
	KindDate      Kind = 8
	KindSymbol    Kind = 9
	KindObject    Kind = 10
	KindUndefined Kind = 11

	KindFunction          Kind = 100
	KindSharedArrayBuffer Kind = 101
	KindArrayBuffer       Kind = 102
	KindPromise           Kind = 103
	KindArrayBufferView   Kind = 104

	KindExecuteException    Kind = 200
	KindParseException      Kind = 201
	KindOOMException        Kind = 202
	KindTimeoutException    Kind = 203
	KindTerminatedException Kind = 204
	KindValueException      Kind = 205
	KindKeyException        Kind = 206
)

// IsException reports whether the kind is one of the error kinds.
func (k Kind) IsException() bool {
	return k >= KindExecuteException
}

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDate:
		return "date"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	case KindUndefined:
		return "undefined"
	case KindFunction:
		return "function"
	case KindSharedArrayBuffer:
		return "shared_array_buffer"
	case KindArrayBuffer:
		return "array_buffer"
	case KindPromise:
		return "promise"
	case KindArrayBufferView:
		return "array_buffer_view"
	case KindExecuteException:
		return "execute_exception"
	case KindParseException:
		return "parse_exception"
	case KindOOMException:
		return "oom_exception"
	case KindTimeoutException:
		return "timeout_exception"
	case KindTerminatedException:
		return "terminated_exception"
	case KindValueException:
		return "value_exception"
	case KindKeyException:
		return "key_exception"
	default:
		return "invalid"
	}
}
