package common

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/ternarybob/arbor"
)

var activeGoroutines atomic.Int64

// ActiveGoroutines returns how many SafeGo goroutines are still running
func ActiveGoroutines() int64 {
	return activeGoroutines.Load()
}

// SafeGo runs fn in a goroutine. A panic is logged with its stack and the process keeps running.
//
//	common.SafeGo(logger, "monitor-initial-check", s.runScheduled)
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	activeGoroutines.Add(1)
	go func() {
		defer activeGoroutines.Add(-1)
		defer RecoverGoroutine(logger, name)
		fn()
	}()
}

// RecoverGoroutine must be deferred directly; it swallows the panic after logging it
func RecoverGoroutine(logger arbor.ILogger, name string) {
	r := recover()
	if r == nil {
		return
	}

	if logger == nil {
		fmt.Fprintf(os.Stderr, "panic in goroutine %s: %v\n%s\n", name, r, debug.Stack())
		return
	}

	logger.Error().
		Str("goroutine", name).
		Str("panic", fmt.Sprint(r)).
		Str("stack", string(debug.Stack())).
		Msg("Recovered from panic in background task")
}
