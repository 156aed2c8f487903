package fan

import (
	"testing"

	"github.com/junevm/thermalctl/internal/ec"
	"github.com/junevm/thermalctl/internal/sensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestController() (*Controller, *ec.MemBackend) {
	ctl, mem := ec.NewMemController()
	sr := sensor.NewReader(ctl, testLogger())
	return NewController(ctl, sr, testLogger()), mem
}

func TestDecodeModeOutOfRangeIsAuto(t *testing.T) {
	assert.Equal(t, ModeAuto, DecodeMode(0x07))
	assert.Equal(t, ModeAuto, DecodeMode(0xFF))
	assert.Equal(t, ModeAdvanced, DecodeMode(3))
}

func TestCurveSpeedForTempBelowFirstClampsToFirst(t *testing.T) {
	c := DefaultCurve()
	assert.Equal(t, 0, c.SpeedForTemp(10))
}

func TestCurveSpeedForTempAboveLastClampsToLast(t *testing.T) {
	c := DefaultCurve()
	assert.Equal(t, 100, c.SpeedForTemp(200))
}

func TestCurveSpeedForTempInterpolatesBetweenPoints(t *testing.T) {
	c := Curve{Points: []Point{{40, 0}, {60, 50}}}
	assert.Equal(t, 25, c.SpeedForTemp(50))
}

func TestCurveSpeedForTempEqualConsecutiveTempsStepFunction(t *testing.T) {
	c := Curve{Points: []Point{{40, 0}, {60, 30}, {60, 70}, {80, 100}}}
	assert.Equal(t, 70, c.SpeedForTemp(60))
}

func TestCurveSpeedForTempEmptyCurveReturns50(t *testing.T) {
	var c Curve
	assert.Equal(t, 50, c.SpeedForTemp(50))
}

func TestSetCoolerBoostPreservesLowBits(t *testing.T) {
	c, mem := newTestController()
	mem.Set(ec.AddrCoolerBoost, 0x25)

	require.NoError(t, c.SetCoolerBoost(true))
	assert.Equal(t, byte(0xA5), mem.Get(ec.AddrCoolerBoost))

	require.NoError(t, c.SetCoolerBoost(false))
	assert.Equal(t, byte(0x25), mem.Get(ec.AddrCoolerBoost))
}

func TestSetManualFanSpeedRejectsOutOfRangeWithoutECWrites(t *testing.T) {
	c, mem := newTestController()

	err := c.SetManualFanSpeed(101, 50)
	require.Error(t, err)
	var invalid *InvalidSpeedError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, 101, invalid.Value)
	assert.Empty(t, mem.Write)

	err = c.SetManualFanSpeed(50, 150)
	require.Error(t, err)
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, 150, invalid.Value)
	assert.Empty(t, mem.Write)
}

func TestSetManualFanSpeedPinsFlatCurveAndSwitchesToAdvanced(t *testing.T) {
	c, mem := newTestController()

	require.NoError(t, c.SetManualFanSpeed(50, 75))

	assert.Equal(t, byte(ModeAdvanced), mem.Get(ec.AddrFanMode))

	for i := byte(0); i < ec.FanCurvePoints; i++ {
		assert.Equal(t, byte(0), mem.Get(ec.AddrCPUFanCurveBase+i*2))
		assert.Equal(t, byte(127), mem.Get(ec.AddrCPUFanCurveBase+i*2+1))
		assert.Equal(t, byte(0), mem.Get(ec.AddrGPUFanCurveBase+i*2))
		assert.Equal(t, byte(191), mem.Get(ec.AddrGPUFanCurveBase+i*2+1))
	}
}

func TestSetCPUFanCurveProgramsPWMEncodedPoints(t *testing.T) {
	c, mem := newTestController()
	curve := Curve{Points: []Point{{40, 0}, {90, 100}}}

	require.NoError(t, c.SetCPUFanCurve(curve))

	assert.Equal(t, byte(40), mem.Get(ec.AddrCPUFanCurveBase))
	assert.Equal(t, byte(0), mem.Get(ec.AddrCPUFanCurveBase+1))
	assert.Equal(t, byte(90), mem.Get(ec.AddrCPUFanCurveBase+2))
	assert.Equal(t, byte(255), mem.Get(ec.AddrCPUFanCurveBase+3))
}

func TestSetCPUFanCurveTruncatesExtraPoints(t *testing.T) {
	c, mem := newTestController()
	pts := make([]Point, 8)
	for i := range pts {
		pts[i] = Point{Temp: 30 + i*5, Speed: i * 10}
	}

	require.NoError(t, c.SetCPUFanCurve(Curve{Points: pts}))

	// Only the first 6 pairs are programmed; writes for points 6 and 7
	// never happen.
	assert.Len(t, mem.Write, ec.FanCurvePoints*2)
}

func TestResetToAutoClearsModeAndBoost(t *testing.T) {
	c, mem := newTestController()
	mem.Set(ec.AddrFanMode, byte(ModeAdvanced))
	mem.Set(ec.AddrCoolerBoost, 0x80)

	require.NoError(t, c.ResetToAuto())

	assert.Equal(t, byte(ModeAuto), mem.Get(ec.AddrFanMode))
	assert.Equal(t, byte(0), mem.Get(ec.AddrCoolerBoost))
}

func TestGetFanInfoComposesStateFromSensorsAndEC(t *testing.T) {
	c, mem := newTestController()
	mem.Set(ec.AddrFanMode, byte(ModeSilent))
	mem.Set(ec.AddrCoolerBoost, 0x80)
	mem.Set(ec.AddrCPUFanSpeed, 20)
	mem.Set(ec.AddrCPUTemp, 55)

	info, err := c.GetFanInfo()
	require.NoError(t, err)

	assert.Equal(t, ModeSilent, info.Mode)
	assert.True(t, info.CoolerBoost)
	assert.Equal(t, 2000, info.CPUFanRPM)
	assert.Equal(t, 55, info.CPUTemp)
}
