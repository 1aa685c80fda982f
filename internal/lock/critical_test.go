package lock

import (
	"sync"
	"testing"
)

func TestGuardSerializesIncrements(t *testing.T) {
	var c Critical
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Guard(func() { counter++ })
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestUnlockAlwaysReleases(t *testing.T) {
	var c Critical
	c.Lock()
	c.Unlock()
	c.Unlock() // idempotent: must not deadlock a subsequent Lock
	c.Lock()
	c.Unlock()
}
