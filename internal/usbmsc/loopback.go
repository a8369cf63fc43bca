package usbmsc

import "sync"

// LoopbackEndpoint is an in-memory Endpoint used by tests and the
// "simulate" CLI command to drive a full CBW → data → CSW cycle without a
// real USB gadget stack. A pending packet queued by one side's Send is
// delivered to the device-side Read/Write calls.
type LoopbackEndpoint struct {
	mu      sync.Mutex
	pending [][]byte
	stalled bool
}

// NewLoopbackEndpoint returns an empty, non-stalled endpoint.
func NewLoopbackEndpoint() *LoopbackEndpoint {
	return &LoopbackEndpoint{}
}

// Send enqueues a packet as if the host had just transmitted it (for an OUT
// endpoint) — test/CLI driver code calls this to feed CBWs.
func (e *LoopbackEndpoint) Send(packet []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]byte, len(packet))
	copy(cp, packet)
	e.pending = append(e.pending, cp)
}

// Read implements Endpoint for the device side: it dequeues the oldest
// pending packet.
func (e *LoopbackEndpoint) Read(buf []byte) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stalled || len(e.pending) == 0 {
		return 0, false
	}

	packet := e.pending[0]
	e.pending = e.pending[1:]
	return copy(buf, packet), true
}

// Write implements Endpoint for the device side: it enqueues buf so a
// subsequent Drain (from the test/CLI driver) observes it.
func (e *LoopbackEndpoint) Write(buf []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stalled {
		return false
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)
	e.pending = append(e.pending, cp)
	return true
}

// Drain removes and returns every packet currently queued, in send order —
// the driver side's way of observing what the device wrote.
func (e *LoopbackEndpoint) Drain() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.pending
	e.pending = nil
	return out
}

func (e *LoopbackEndpoint) Stall() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stalled = true
	e.pending = nil
}

func (e *LoopbackEndpoint) ClearStall() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stalled = false
}

// Stalled reports whether Stall has been called without a matching
// ClearStall — used by tests to assert the malformed-CBW stall path.
func (e *LoopbackEndpoint) Stalled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stalled
}
