package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with its stack. Call it deferred:
//
//	defer observability.RecoverPanic(logger, "ops server")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		LogPanic(logger, where, r)
	}
}

// RecoverPanicWithCallback recovers and logs a panic, then runs callback only if one occurred
func RecoverPanicWithCallback(logger *Logger, where string, callback func(recovered interface{})) {
	if r := recover(); r != nil {
		LogPanic(logger, where, r)
		if callback != nil {
			callback(r)
		}
	}
}

// LogPanic logs a recovered panic value along with the current goroutine stack
func LogPanic(logger *Logger, where string, recovered interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic":   fmt.Sprint(recovered),
		"stack":   string(debug.Stack()),
		"context": where,
	}).Error("PANIC recovered")
}

// MustRecover converts a recovered value into an error, nil when nothing panicked
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
