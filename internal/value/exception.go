package value

import (
	"errors"
	"strings"

	v8 "github.com/tommie/v8go"
)

// FormatException renders an engine error into the message the host sees on
// an exception handle. Script errors carry their origin location and stack
// trace; anything else degrades to the plain error string.
func FormatException(err error) string {
	var jsErr *v8.JSError
	if !errors.As(err, &jsErr) {
		return err.Error()
	}

	var b strings.Builder
	if jsErr.Location != "" {
		b.WriteString(jsErr.Location)
		b.WriteString(": ")
	}
	b.WriteString(jsErr.Message)
	b.WriteString("\n")
	if jsErr.StackTrace != "" {
		b.WriteString("\n")
		b.WriteString(jsErr.StackTrace)
		b.WriteString("\n")
	}
	return b.String()
}
