// Package sysutil provides the goroutine-identity and panic-recovery
// helpers the planner's critical sections and background consumers use.
package sysutil

import (
	"runtime/debug"
	"strings"

	"github.com/petermattis/goid"

	"fffplanner/internal/logger"
)

// GetGID returns the calling goroutine's id, used to tag which logical
// context (producer or stepper-link consumer) touched a block.
func GetGID() uint64 {
	return uint64(goid.Get())
}

// CatchPanic recovers a panic on a background goroutine (the stepper-link
// consumer) and logs it instead of crashing the process, except for the
// sentinel "exit" panic used to unwind a deliberate shutdown.
func CatchPanic() {
	if r := recover(); r != nil {
		if msg, ok := r.(string); ok && msg == "exit" {
			panic(r)
		}
		if msg, ok := r.(string); ok && strings.Contains(msg, "stepper link closed") {
			logger.Warnf("recovered: %v", msg)
			return
		}
		logger.Errorf("panic: gid=%d %v\n%s", GetGID(), r, string(debug.Stack()))
	}
}
