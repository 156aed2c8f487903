package ec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// portDevicePath is the process-visible random-access byte device that
// exposes the legacy ISA I/O ports. Offsets into this file are port
// numbers, not EC register addresses.
const portDevicePath = "/dev/port"

const (
	scPort   int64 = 0x66 // status/command port
	dataPort int64 = 0x62 // data port

	scReadCmd  byte = 0x80
	scWriteCmd byte = 0x81

	scIBF byte = 0x02 // input buffer full: EC hasn't consumed a write yet
	scOBF byte = 0x01 // output buffer full: a read result is ready
)

// pollIterations and pollDelay bound the busy-wait on the status port.
// 10000 * 10us is about 100ms worst case per handshake step; widen these
// if needed but never make them unbounded, or a misbehaving EC hangs the
// process.
var (
	pollIterations = 10000
	pollDelay      = 10 * time.Microsecond
)

// portBackend implements backend over /dev/port using the EC's IBF/OBF
// handshake protocol. This is the fiddly part of the transport: the EC
// only accepts a new command once it has consumed the previous one
// (IBF=0), and only has a read result ready once OBF=1.
type portBackend struct {
	f   *os.File
	log zerolog.Logger
}

func probeDirectPort(log zerolog.Logger) (backend, error) {
	f, err := os.OpenFile(portDevicePath, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, portDevicePath)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	return &portBackend{f: f, log: log}, nil
}

func (p *portBackend) name() string { return "direct-port" }

func (p *portBackend) close() error { return p.f.Close() }

func (p *portBackend) readPort(port int64) (byte, error) {
	if _, err := p.f.Seek(port, 0); err != nil {
		return 0, fmt.Errorf("%w: seek port %#x: %v", ErrIoFailed, port, err)
	}
	buf := make([]byte, 1)
	if _, err := p.f.Read(buf); err != nil {
		return 0, fmt.Errorf("%w: read port %#x: %v", ErrIoFailed, port, err)
	}
	return buf[0], nil
}

func (p *portBackend) writePort(port int64, value byte) error {
	if _, err := p.f.Seek(port, 0); err != nil {
		return fmt.Errorf("%w: seek port %#x: %v", ErrIoFailed, port, err)
	}
	if _, err := p.f.Write([]byte{value}); err != nil {
		return fmt.Errorf("%w: write port %#x: %v", ErrIoFailed, port, err)
	}
	return nil
}

// waitFlag polls the status port until the given bit matches want, or
// gives up after pollIterations and returns ErrIoFailed.
func (p *portBackend) waitFlag(flag byte, want bool) error {
	for i := 0; i < pollIterations; i++ {
		sc, err := p.readPort(scPort)
		if err != nil {
			return err
		}
		if ((sc & flag) != 0) == want {
			return nil
		}
		time.Sleep(pollDelay)
	}
	return fmt.Errorf("%w: polling status port timed out", ErrIoFailed)
}

func (p *portBackend) readByte(addr byte) (byte, error) {
	if err := p.waitFlag(scIBF, false); err != nil {
		return 0, err
	}
	if err := p.writePort(scPort, scReadCmd); err != nil {
		return 0, err
	}
	if err := p.waitFlag(scIBF, false); err != nil {
		return 0, err
	}
	if err := p.writePort(dataPort, addr); err != nil {
		return 0, err
	}
	if err := p.waitFlag(scOBF, true); err != nil {
		return 0, err
	}
	return p.readPort(dataPort)
}

func (p *portBackend) writeByte(addr, value byte) error {
	if err := p.waitFlag(scIBF, false); err != nil {
		return err
	}
	if err := p.writePort(scPort, scWriteCmd); err != nil {
		return err
	}
	if err := p.waitFlag(scIBF, false); err != nil {
		return err
	}
	if err := p.writePort(dataPort, addr); err != nil {
		return err
	}
	if err := p.waitFlag(scIBF, false); err != nil {
		return err
	}
	return p.writePort(dataPort, value)
}
