// Package sensor acquires CPU/GPU temperatures and fan RPM readings,
// falling back across several sources so the UI stays responsive even when
// a given kernel module isn't loaded on a particular machine.
package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/junevm/thermalctl/internal/ec"
	"github.com/rs/zerolog"
)

const (
	hwmonGlob         = "/sys/class/hwmon/hwmon*"
	thermalZoneFormat = "/sys/class/thermal/thermal_zone%d/temp"
	thermalZoneCount  = 3

	// tachScale is the hardware-empirical divisor for the raw tach byte.
	// Not guaranteed accurate on every board, but it is the value a
	// compatibility test suite must reproduce.
	tachScale = 150.0
)

// Reader composes temperature and fan-speed readings from hwmon, the
// thermal subsystem, and the EC, in that fallback order.
type Reader struct {
	ctl          *ec.Controller
	log          zerolog.Logger
	coretempPath string // empty if not found at construction time
}

// NewReader discovers the coretemp hwmon path once and returns a Reader
// bound to ctl for its EC-register fallback paths.
func NewReader(ctl *ec.Controller, log zerolog.Logger) *Reader {
	return &Reader{
		ctl:          ctl,
		log:          log,
		coretempPath: findHwmonByName("coretemp"),
	}
}

// findHwmonByName returns the hwmon directory whose "name" file trims to
// want, or "" if none is found.
func findHwmonByName(want string) string {
	matches, err := filepath.Glob(hwmonGlob)
	if err != nil {
		return ""
	}
	for _, dir := range matches {
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(name)) == want {
			return dir
		}
	}
	return ""
}

// findHwmonContaining returns the first hwmon directory whose name
// contains any of the given substrings (case-insensitive).
func findHwmonContaining(substrs ...string) string {
	matches, err := filepath.Glob(hwmonGlob)
	if err != nil {
		return ""
	}
	for _, dir := range matches {
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(string(name)))
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return dir
			}
		}
	}
	return ""
}

func readMilliCelsius(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	md, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, false
	}
	return md, true
}

// CPUTemp returns the CPU temperature in whole degrees Celsius, trying
// coretemp, then thermal zones, then direct EC reads, then EC through the
// transport. Reports 0 if every source fails — UI responsiveness outweighs
// accuracy for a display value.
func (r *Reader) CPUTemp() int {
	if r.coretempPath != "" {
		if md, ok := readMilliCelsius(filepath.Join(r.coretempPath, "temp1_input")); ok {
			return md / 1000
		}
	}

	for i := 0; i < thermalZoneCount; i++ {
		md, ok := readMilliCelsius(fmt.Sprintf(thermalZoneFormat, i))
		if !ok {
			continue
		}
		c := md / 1000
		if c > 20 && c < 110 {
			return c
		}
	}

	if b, err := os.ReadFile(ecDebugPath); err == nil && len(b) > int(ec.AddrCPUTemp) {
		return int(b[ec.AddrCPUTemp])
	}

	if v, err := r.ctl.Read(ec.AddrCPUTemp); err == nil {
		return int(v)
	}

	r.log.Debug().Msg("cpu temperature unavailable from all sources")
	return 0
}

// GPUTemp returns the GPU temperature in whole degrees Celsius, trying a
// discrete-GPU hwmon device, then direct EC reads, then EC through the
// transport. Reports 0 if every source fails.
func (r *Reader) GPUTemp() int {
	if dir := findHwmonContaining("nvidia", "amdgpu", "nouveau"); dir != "" {
		if md, ok := readMilliCelsius(filepath.Join(dir, "temp1_input")); ok {
			return md / 1000
		}
	}

	if b, err := os.ReadFile(ecDebugPath); err == nil && len(b) > int(ec.AddrGPUTemp) {
		return int(b[ec.AddrGPUTemp])
	}

	if v, err := r.ctl.Read(ec.AddrGPUTemp); err == nil {
		return int(v)
	}

	r.log.Debug().Msg("gpu temperature unavailable from all sources")
	return 0
}

// ecDebugPath is read directly (not through the Controller) as the
// "direct EC register read" fallback step that precedes the full
// transport, matching the original's two-tier EC fallback: a cheap
// debugfs peek before paying for a transport round trip.
const ecDebugPath = "/sys/kernel/debug/ec/ec0/io"

// FanRPM reads fan number n (1=CPU, 2=GPU) and returns (rpm, percent).
// Falls back to the "realtime alias" register one address higher if the
// primary register reads 0; reports (0, 0) if both read 0.
func (r *Reader) FanRPM(n int) (int, int) {
	primary := ec.AddrCPUFanSpeed
	if n == 2 {
		primary = ec.AddrGPUFanSpeed
	}

	raw, err := r.ctl.Read(primary)
	if err == nil && raw > 0 {
		return tachToRPMPercent(raw)
	}

	raw, err = r.ctl.Read(primary + 1)
	if err == nil && raw > 0 {
		return tachToRPMPercent(raw)
	}

	return 0, 0
}

func tachToRPMPercent(raw byte) (int, int) {
	rpm := int(raw) * 100
	percent := int((float64(raw) / tachScale) * 100)
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return rpm, percent
}
