package common

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/ternarybob/arbor"
)

// SafeGo starts fn on a new goroutine. A panic in fn is logged with its stack
// and swallowed so one bad message or event cannot take the process down.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, name, r)
			}
		}()
		fn()
	}()
}

func logPanic(logger arbor.ILogger, name string, r interface{}) {
	stack := string(debug.Stack())
	if logger == nil {
		fmt.Fprintf(os.Stderr, "panic in goroutine %s: %v\n%s\n", name, r, stack)
		return
	}
	logger.Error().
		Str("goroutine", name).
		Str("panic", fmt.Sprint(r)).
		Str("stack", stack).
		Msg("Recovered panic in goroutine")
}
