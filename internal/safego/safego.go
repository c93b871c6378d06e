// Package safego launches background goroutines with panic recovery.
package safego

import "log/slog"

// Go launches fn in a new goroutine and recovers any panic, logging it instead
// of crashing the process. Long-lived background work such as the token
// sweeper runs through this so a panic in one sweep cycle cannot take the
// server down or silently kill the loop.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "panic", r)
			}
		}()
		fn()
	}()
}
