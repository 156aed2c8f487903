package sensor

import (
	"testing"

	"github.com/junevm/thermalctl/internal/ec"
	"github.com/stretchr/testify/assert"
)

func TestFanRPMFromPrimaryRegister(t *testing.T) {
	ctl, mem := ec.NewMemController()
	mem.Set(ec.AddrCPUFanSpeed, 20)

	r := NewReader(ctl, testLogger())
	rpm, pct := r.FanRPM(1)

	assert.Equal(t, 2000, rpm)
	assert.Equal(t, 13, pct) // (20/150)*100 = 13.33 -> truncated to 13
}

func TestFanRPMFallsBackToRealtimeAlias(t *testing.T) {
	ctl, mem := ec.NewMemController()
	mem.Set(ec.AddrCPUFanSpeed, 0)
	mem.Set(ec.AddrCPUFanSpeed+1, 30)

	r := NewReader(ctl, testLogger())
	rpm, pct := r.FanRPM(1)

	assert.Equal(t, 3000, rpm)
	assert.Equal(t, 20, pct)
}

func TestFanRPMZeroWhenBothSourcesZero(t *testing.T) {
	ctl, _ := ec.NewMemController()

	r := NewReader(ctl, testLogger())
	rpm, pct := r.FanRPM(2)

	assert.Equal(t, 0, rpm)
	assert.Equal(t, 0, pct)
}

func TestFanRPMPercentClampedAt100(t *testing.T) {
	ctl, mem := ec.NewMemController()
	mem.Set(ec.AddrGPUFanSpeed, 255)

	r := NewReader(ctl, testLogger())
	_, pct := r.FanRPM(2)

	assert.Equal(t, 100, pct)
}

func TestCPUTempFallsBackToECWhenNoHwmon(t *testing.T) {
	ctl, mem := ec.NewMemController()
	mem.Set(ec.AddrCPUTemp, 55)

	r := &Reader{ctl: ctl, log: testLogger()}
	assert.Equal(t, 55, r.CPUTemp())
}

func TestGPUTempFallsBackToECWhenNoHwmon(t *testing.T) {
	ctl, mem := ec.NewMemController()
	mem.Set(ec.AddrGPUTemp, 61)

	r := &Reader{ctl: ctl, log: testLogger()}
	assert.Equal(t, 61, r.GPUTemp())
}
