package ofdm

import "sync"

// event is a rendezvous point used to implement the coordinator/pipeline
// two-phase barrier protocol: one side signals, the other waits. The flag
// stays set until a Wait consumes it; Wait clears it before returning, so
// one Signal releases one Wait and there is no separate reset call. A
// sticky stop flag lets Close wake every blocked waiter exactly
// once, without requiring a signal-per-waiter.
type event struct {
	mu      sync.Mutex
	cond    *sync.Cond
	signal  bool
	stopped bool
}

func newEvent() *event {
	e := &event{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Signal sets the event and wakes every waiter.
func (e *event) Signal() {
	e.mu.Lock()
	e.signal = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

// Wait blocks until Signal or Stop is called, then clears the event for
// reuse on the next frame. It returns false if the event was stopped.
func (e *event) Wait() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.signal && !e.stopped {
		e.cond.Wait()
	}
	ok := !e.stopped
	e.signal = false
	return ok
}

// Stop permanently wakes every current and future waiter with a false
// result. It is idempotent.
func (e *event) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	e.cond.Broadcast()
}
