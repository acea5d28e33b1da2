package common

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn on a new goroutine. A panic is logged with its stack and swallowed.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := GetStackTrace()
				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stackTrace).
						Msg("Recovered from panic in goroutine")
					return
				}
				fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stackTrace)
			}
		}()

		fn()
	}()
}
