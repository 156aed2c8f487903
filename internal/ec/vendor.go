package ec

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// vendorDriverDir is the platform sysfs directory the vendor's in-tree EC
// driver exposes a handful of named attributes under.
const vendorDriverDir = "/sys/devices/platform/msi-ec"

// vendorBackend maps a small subset of EC addresses to named sysfs
// attributes. It cannot program fan curves or read temperatures/tach
// counts; those addresses are simply not in sysfsAttr, and readByte/
// writeByte return ErrInvalidAddress for them rather than silently
// no-opping, so callers that depend on a write landing find out
// immediately instead of assuming success.
type vendorBackend struct {
	dir string
	log zerolog.Logger
}

func probeVendorDriver(log zerolog.Logger) (backend, error) {
	info, err := os.Stat(vendorDriverDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, vendorDriverDir)
	}
	return &vendorBackend{dir: vendorDriverDir, log: log}, nil
}

func (v *vendorBackend) name() string { return "vendor-driver" }

func (v *vendorBackend) close() error { return nil }

func (v *vendorBackend) sysfsAttr(addr byte) (string, bool) {
	switch addr {
	case AddrShiftMode:
		return "shift_mode", true
	case AddrSuperBattery:
		return "super_battery", true
	case AddrCoolerBoost:
		return "cooler_boost", true
	case AddrFanMode:
		return "fan_mode", true
	default:
		return "", false
	}
}

func (v *vendorBackend) readByte(addr byte) (byte, error) {
	attr, ok := v.sysfsAttr(addr)
	if !ok {
		return 0, fmt.Errorf("%w: %#x", ErrInvalidAddress, addr)
	}
	content, err := os.ReadFile(v.dir + "/" + attr)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrIoFailed, attr, err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(content)), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %v", ErrIoFailed, attr, err)
	}
	return byte(n), nil
}

func (v *vendorBackend) writeByte(addr, value byte) error {
	attr, ok := v.sysfsAttr(addr)
	if !ok {
		return fmt.Errorf("%w: %#x", ErrInvalidAddress, addr)
	}
	if err := os.WriteFile(v.dir+"/"+attr, []byte(strconv.Itoa(int(value))), 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIoFailed, attr, err)
	}
	return nil
}
