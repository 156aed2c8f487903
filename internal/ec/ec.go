// Package ec provides a uniform byte-addressed read/write interface to a
// laptop's Embedded Controller, over whichever of three backends the
// running machine supports: direct ISA port I/O, the kernel's ACPI debug
// interface, or a vendor sysfs driver.
package ec

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// backend is the capability every EC access method must provide. It is a
// fixed, closed set of three implementations — not meant for external
// extension, so it stays unexported and dispatch stays a simple ordered
// probe rather than a registry.
type backend interface {
	readByte(addr byte) (byte, error)
	writeByte(addr, value byte) error
	name() string
	close() error
}

// Controller is the sole owner of one backend's device handle. All EC
// transactions against a Controller are serialized through mu — the
// direct-port backend's IBF/OBF handshake is not safe under interleaved
// callers, and the kernel-backed backends gain nothing from parallel
// access either. fan.Controller and scenario.Manager must share a single
// *Controller rather than each constructing their own.
type Controller struct {
	mu  sync.Mutex
	be  backend
	log zerolog.Logger
}

// Open probes backends in order — direct port, ACPI debug, vendor driver —
// and returns a Controller wrapping the first one that succeeds. A
// permission error from the direct-port probe is terminal: the machine is
// capable but the caller lacks privilege, so Open does not fall through to
// try the other backends in that case.
func Open(log zerolog.Logger) (*Controller, error) {
	if be, err := probeDirectPort(log); err == nil {
		log.Debug().Str("backend", be.name()).Msg("ec backend selected")
		return &Controller{be: be, log: log}, nil
	} else if errors.Is(err, ErrPermissionDenied) {
		return nil, err
	}

	if be, err := probeACPIDebug(log); err == nil {
		log.Debug().Str("backend", be.name()).Msg("ec backend selected")
		return &Controller{be: be, log: log}, nil
	}

	if be, err := probeVendorDriver(log); err == nil {
		log.Debug().Str("backend", be.name()).Msg("ec backend selected")
		return &Controller{be: be, log: log}, nil
	}

	return nil, ErrNotSupported
}

// Read returns the byte at address addr.
func (c *Controller) Read(addr byte) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.be.readByte(addr)
	if err != nil {
		c.log.Debug().Err(err).Uint8("addr", addr).Str("backend", c.be.name()).Msg("ec read failed")
	}
	return v, err
}

// Write stores value at address addr.
func (c *Controller) Write(addr, value byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.be.writeByte(addr, value); err != nil {
		c.log.Debug().Err(err).Uint8("addr", addr).Uint8("value", value).Str("backend", c.be.name()).Msg("ec write failed")
		return err
	}
	return nil
}

// BackendName reports which backend this controller selected, for
// diagnostics and the setup front-end.
func (c *Controller) BackendName() string {
	return c.be.name()
}

// Close releases the underlying device handle. Callers must not use the
// Controller, nor any component holding a reference to it, after Close.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.be.close()
}
