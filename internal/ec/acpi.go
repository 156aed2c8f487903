package ec

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// acpiDebugPath is the 256-byte EC shadow the kernel's ec_sys module
// exposes under debugfs when loaded with write_support=1.
const acpiDebugPath = "/sys/kernel/debug/ec/ec0/io"

// acpiBackend treats the debugfs file as a flat 256-byte seekable array:
// seek to the address, read or write exactly one byte.
type acpiBackend struct {
	f   *os.File
	log zerolog.Logger
}

func probeACPIDebug(log zerolog.Logger) (backend, error) {
	f, err := os.OpenFile(acpiDebugPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	return &acpiBackend{f: f, log: log}, nil
}

func (a *acpiBackend) name() string { return "acpi-debug" }

func (a *acpiBackend) close() error { return a.f.Close() }

func (a *acpiBackend) readByte(addr byte) (byte, error) {
	if _, err := a.f.Seek(int64(addr), 0); err != nil {
		return 0, fmt.Errorf("%w: seek %#x: %v", ErrIoFailed, addr, err)
	}
	buf := make([]byte, 1)
	if _, err := a.f.Read(buf); err != nil {
		return 0, fmt.Errorf("%w: read %#x: %v", ErrIoFailed, addr, err)
	}
	return buf[0], nil
}

func (a *acpiBackend) writeByte(addr, value byte) error {
	if _, err := a.f.Seek(int64(addr), 0); err != nil {
		return fmt.Errorf("%w: seek %#x: %v", ErrIoFailed, addr, err)
	}
	if _, err := a.f.Write([]byte{value}); err != nil {
		return fmt.Errorf("%w: write %#x: %v", ErrIoFailed, addr, err)
	}
	return nil
}
