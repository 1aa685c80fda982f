// Package lock provides the critical-section primitive the planner uses to
// bracket any multi-word state the stepper-link consumer goroutine may also
// observe: the ring buffer's head/tail indices and a queued block's mutable
// trajectory fields.
package lock

import (
	"runtime"
	"sync/atomic"
)

const maxBackoff = 32

// Critical is a spinlock standing in for "interrupts disabled": short
// enough that the producer never parks a goroutine on it, guarding state
// the stepper-link consumer reads without its own lock.
type Critical uint32

func (c *Critical) Lock() {
	backoff := 1
	for !atomic.CompareAndSwapUint32((*uint32)(c), 0, 1) {
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

func (c *Critical) Unlock() {
	atomic.StoreUint32((*uint32)(c), 0)
}

// Guard runs fn with the critical section held. Used for the block mutation
// sites in §4.5/§4.6 where the section must re-check a block's busy flag
// before writing its trajectory fields.
func (c *Critical) Guard(fn func()) {
	c.Lock()
	defer c.Unlock()
	fn()
}
