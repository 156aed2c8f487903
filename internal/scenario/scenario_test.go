package scenario

import (
	"testing"

	"github.com/junevm/thermalctl/internal/ec"
	"github.com/junevm/thermalctl/internal/fan"
	"github.com/junevm/thermalctl/internal/sensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestManager(t *testing.T) (*Manager, *fan.Controller, *ec.MemBackend) {
	t.Helper()
	ctl, mem := ec.NewMemController()
	sr := sensor.NewReader(ctl, testLogger())
	fc := fan.NewController(ctl, sr, testLogger())
	m, err := NewManager(ctl, fc, testLogger())
	require.NoError(t, err)
	return m, fc, mem
}

func TestDecodeShiftModeUnknownByteIsComfort(t *testing.T) {
	assert.Equal(t, ShiftComfort, DecodeShiftMode(0x99))
	assert.Equal(t, ShiftTurbo, DecodeShiftMode(0xC4))
}

func TestSettingsForTableMatchesSpec(t *testing.T) {
	cases := []struct {
		scenario     Scenario
		shift        ShiftMode
		mode         fan.Mode
		coolerBoost  bool
		superBattery bool
	}{
		{Silent, ShiftEcoSilent, fan.ModeSilent, false, false},
		{Balanced, ShiftComfort, fan.ModeAuto, false, false},
		{HighPerformance, ShiftSport, fan.ModeBasic, false, false},
		{Turbo, ShiftTurbo, fan.ModeAdvanced, true, false},
		{SuperBattery, ShiftEcoSilent, fan.ModeSilent, false, true},
	}

	for _, tc := range cases {
		s, ok := settingsFor(tc.scenario)
		require.True(t, ok, tc.scenario)
		assert.Equal(t, tc.shift, s.ShiftMode, tc.scenario)
		assert.Equal(t, tc.mode, s.FanMode, tc.scenario)
		assert.Equal(t, tc.coolerBoost, s.CoolerBoost, tc.scenario)
		assert.Equal(t, tc.superBattery, s.SuperBattery, tc.scenario)
		assert.NotNil(t, s.CPUFanCurve, tc.scenario)
		assert.NotNil(t, s.GPUFanCurve, tc.scenario)
	}

	_, ok := settingsFor(Custom)
	assert.False(t, ok)
}

func TestSetScenarioTurboWritesExactOrderedSequence(t *testing.T) {
	m, _, mem := newTestManager(t)

	require.NoError(t, m.SetScenario(Turbo))

	perf := fan.PerformanceCurve()

	want := []ec.Write{
		{Addr: ec.AddrShiftMode, Value: byte(ShiftTurbo)},
		{Addr: ec.AddrSuperBattery, Value: 0x00},
		{Addr: ec.AddrFanMode, Value: byte(fan.ModeAdvanced)},
	}

	require.True(t, len(mem.Write) >= 4)
	assert.Equal(t, want[0], mem.Write[0])
	assert.Equal(t, want[1], mem.Write[1])
	assert.Equal(t, want[2], mem.Write[2])

	// step 4: cooler boost RMW, OR'd with whatever was previously set (0x00).
	assert.Equal(t, ec.AddrCoolerBoost, mem.Write[3].Addr)
	assert.Equal(t, byte(0x80), mem.Write[3].Value)

	// steps 5-6: 6 (temp, pwm) pairs each for CPU then GPU, matching the
	// performance preset with temperature bytes verbatim and speed bytes
	// PWM-encoded as (percent*255)/100.
	cpuWrites := mem.Write[4:16]
	for i, p := range perf.Points {
		assert.Equal(t, ec.AddrCPUFanCurveBase+byte(i*2), cpuWrites[i*2].Addr)
		assert.Equal(t, byte(p.Temp), cpuWrites[i*2].Value)
		assert.Equal(t, ec.AddrCPUFanCurveBase+byte(i*2)+1, cpuWrites[i*2+1].Addr)
		assert.Equal(t, byte((p.Speed*255)/100), cpuWrites[i*2+1].Value)
	}

	// spot-check the documented example: temp 35 -> 0x23, speed 30 -> 76.
	assert.Equal(t, byte(0x23), cpuWrites[0].Value)
	assert.Equal(t, byte(76), cpuWrites[1].Value)
}

func TestGetCurrentInfoSilentDetection(t *testing.T) {
	m, _, mem := newTestManager(t)
	mem.Set(ec.AddrShiftMode, byte(ShiftEcoSilent))
	mem.Set(ec.AddrSuperBattery, 0x00)

	info, err := m.GetCurrentInfo()
	require.NoError(t, err)
	assert.Equal(t, Silent, info.Current)
	assert.Equal(t, ShiftEcoSilent, info.ShiftMode)
	assert.False(t, info.SuperBattery)
}

func TestGetCurrentInfoSuperBatteryDominatesShiftMode(t *testing.T) {
	m, _, mem := newTestManager(t)
	mem.Set(ec.AddrShiftMode, byte(ShiftSport))
	mem.Set(ec.AddrSuperBattery, 0x01)

	info, err := m.GetCurrentInfo()
	require.NoError(t, err)
	assert.Equal(t, SuperBattery, info.Current)
}

func TestApplySettingsSucceedsAgainstHealthyBackend(t *testing.T) {
	m, _, _ := newTestManager(t)

	settings, ok := settingsFor(Silent)
	require.True(t, ok)

	require.NoError(t, m.applySettings(settings))
}

func TestCustomScenarioIsNoOp(t *testing.T) {
	m, _, mem := newTestManager(t)

	require.NoError(t, m.SetScenario(Custom))
	assert.Empty(t, mem.Write)
}

func TestFailedApplyRejectsTransitionAndLeavesMachineStateUnchanged(t *testing.T) {
	m, _, mem := newTestManager(t)

	before, err := m.CurrentMachineState()
	require.NoError(t, err)
	assert.Equal(t, Balanced, before)

	mem.FailWrite = ec.ErrIoFailed

	err = m.SetScenario(Turbo)
	require.Error(t, err)

	var failErr *FailureError
	require.ErrorAs(t, err, &failErr)
	assert.Equal(t, 1, failErr.Step)

	after, err := m.CurrentMachineState()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
