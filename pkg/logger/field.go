package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FieldMod tags a log entry with the emitting module, normalizing spaces to
// dots so downstream log queries can group on it.
func FieldMod(value string) Field {
	value = strings.Replace(value, " ", ".", -1)
	return String("mod", value)
}

// FieldErr wraps err as a structured zap error field.
func FieldErr(err error) Field {
	return zap.Error(err)
}

// FieldErrKind tags a log entry with a coarse error category, distinct from
// the error message itself, for grouping unrelated errors of the same kind.
func FieldErrKind(value string) Field {
	return String("err_kind", value)
}

// FieldKey tags a log entry with a domain key, e.g. a pair address.
func FieldKey(value string) Field {
	return String("key", value)
}

// FieldMethod tags a log entry with the calling method or operation name.
func FieldMethod(value string) Field {
	return String("method", value)
}

// FieldEvent tags a log entry with a named event, for entries that mark a
// state transition rather than an ordinary progress message.
func FieldEvent(value string) Field {
	return String("event", value)
}

// FieldCode tags a log entry with a numeric status or error code.
func FieldCode(value int32) Field {
	return Int32("code", value)
}

// FieldTraceId tags a log entry with a request/trace identifier for
// correlating entries across a single operation.
func FieldTraceId(tid string) Field {
	return String("trace_id", tid)
}

// FieldCost records an elapsed duration in milliseconds, rounded to
// microsecond precision before formatting.
func FieldCost(value time.Duration) Field {
	return String("cost", fmt.Sprintf("%.3f", float64(value.Round(time.Microsecond))/float64(time.Millisecond)))
}

// FieldStack attaches a raw stack trace captured at the log site.
func FieldStack(value []byte) Field {
	return ByteString("stack", value)
}
