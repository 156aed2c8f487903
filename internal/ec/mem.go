package ec

import "sync"

// Write records one write transaction, in order, for test assertions.
type Write struct {
	Addr  byte
	Value byte
}

// MemBackend is an in-memory 256-byte register file used by tests and by
// anything that wants to simulate EC behavior without real hardware. It
// also records every write in order, which is how the end-to-end scenario
// tests assert the exact byte sequence spec.md §8 specifies.
type MemBackend struct {
	mu    sync.Mutex
	regs  [256]byte
	Write []Write

	// FailWrite, if non-nil, is returned by every writeByte call instead of
	// succeeding — a hook for tests that need to force a transport failure
	// partway through a multi-step operation.
	FailWrite error
}

// NewMemBackend returns a zeroed 256-byte register file.
func NewMemBackend() *MemBackend {
	return &MemBackend{}
}

func (m *MemBackend) readByte(addr byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr], nil
}

func (m *MemBackend) writeByte(addr, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite != nil {
		return m.FailWrite
	}
	m.regs[addr] = value
	m.Write = append(m.Write, Write{Addr: addr, Value: value})
	return nil
}

func (m *MemBackend) name() string { return "memory" }

func (m *MemBackend) close() error { return nil }

// Get returns the current value at addr without going through Controller.
func (m *MemBackend) Get(addr byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr]
}

// Set stores value at addr directly, bypassing the write log — useful for
// seeding initial hardware state in a test.
func (m *MemBackend) Set(addr, value byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[addr] = value
}

// NewMemController returns a Controller backed by a fresh MemBackend, and
// the backend itself so tests can seed state and inspect the write log.
func NewMemController() (*Controller, *MemBackend) {
	mb := NewMemBackend()
	return &Controller{be: mb}, mb
}
