// Package scenario coordinates named thermal/power scenarios — Silent,
// Balanced, HighPerformance, Turbo, SuperBattery — into ordered EC writes,
// modeled as a guarded state machine over the shared EC transport.
package scenario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/junevm/thermalctl/internal/ec"
	"github.com/junevm/thermalctl/internal/fan"
	"github.com/qmuntal/stateless"
	"github.com/rs/zerolog"
)

// ShiftMode is the EC's power/thermal profile register value. Any byte
// outside the known set decodes as Comfort.
type ShiftMode byte

const (
	ShiftSport     ShiftMode = 0xC0
	ShiftComfort   ShiftMode = 0xC1
	ShiftEcoSilent ShiftMode = 0xC2
	ShiftTurbo     ShiftMode = 0xC4
)

// DecodeShiftMode maps a raw SHIFT_MODE byte to a ShiftMode, defaulting to
// Comfort for any value outside the known set.
func DecodeShiftMode(b byte) ShiftMode {
	switch ShiftMode(b) {
	case ShiftSport, ShiftEcoSilent, ShiftTurbo:
		return ShiftMode(b)
	default:
		return ShiftComfort
	}
}

func (s ShiftMode) String() string {
	switch s {
	case ShiftSport:
		return "Sport"
	case ShiftEcoSilent:
		return "EcoSilent"
	case ShiftTurbo:
		return "Turbo"
	default:
		return "Comfort"
	}
}

// Scenario is a named, user-facing thermal/power preset.
type Scenario string

const (
	Silent          Scenario = "Silent"
	Balanced        Scenario = "Balanced"
	HighPerformance Scenario = "HighPerformance"
	Turbo           Scenario = "Turbo"
	SuperBattery    Scenario = "SuperBattery"
	Custom          Scenario = "Custom"
)

// Settings is the fully decomposed set of EC writes a Scenario maps to.
// Curves are optional: a nil curve means "do not reprogram".
type Settings struct {
	ShiftMode    ShiftMode
	FanMode      fan.Mode
	CoolerBoost  bool
	SuperBattery bool
	CPUFanCurve  *fan.Curve
	GPUFanCurve  *fan.Curve
}

// Info is the read-back snapshot from get_current_info.
type Info struct {
	Current      Scenario
	ShiftMode    ShiftMode
	SuperBattery bool
	// MachineState is the state machine's current state: the last scenario
	// whose settings were successfully applied through Fire, or, before any
	// apply, the scenario detected when the Manager was built (Custom if
	// that read failed). It can be Custom, which Current (derived from live
	// EC reads) never reports.
	MachineState Scenario
}

// settingsFor is the pure Scenario -> Settings mapping (spec §4.4 table).
// Custom has no entry — the manager never synthesizes settings for it.
func settingsFor(s Scenario) (Settings, bool) {
	silentCurve := fan.SilentCurve()
	defaultCurve := fan.DefaultCurve()
	perfCurve := fan.PerformanceCurve()

	switch s {
	case Silent:
		return Settings{
			ShiftMode:   ShiftEcoSilent,
			FanMode:     fan.ModeSilent,
			CoolerBoost: false,
			CPUFanCurve: &silentCurve,
			GPUFanCurve: &silentCurve,
		}, true
	case Balanced:
		return Settings{
			ShiftMode:   ShiftComfort,
			FanMode:     fan.ModeAuto,
			CoolerBoost: false,
			CPUFanCurve: &defaultCurve,
			GPUFanCurve: &defaultCurve,
		}, true
	case HighPerformance:
		return Settings{
			ShiftMode:   ShiftSport,
			FanMode:     fan.ModeBasic,
			CoolerBoost: false,
			CPUFanCurve: &perfCurve,
			GPUFanCurve: &perfCurve,
		}, true
	case Turbo:
		return Settings{
			ShiftMode:   ShiftTurbo,
			FanMode:     fan.ModeAdvanced,
			CoolerBoost: true,
			CPUFanCurve: &perfCurve,
			GPUFanCurve: &perfCurve,
		}, true
	case SuperBattery:
		return Settings{
			ShiftMode:    ShiftEcoSilent,
			FanMode:      fan.ModeSilent,
			CoolerBoost:  false,
			SuperBattery: true,
			CPUFanCurve:  &silentCurve,
			GPUFanCurve:  &silentCurve,
		}, true
	default:
		return Settings{}, false
	}
}

// FailureError names the 1-based apply_settings step that failed and
// wraps the underlying transport or fan error. Partial writes up to that
// step are not unwound — the EC has no transaction primitive.
type FailureError struct {
	Step int
	Err  error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("scenario: apply step %d failed: %v", e.Step, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// trigger names the single stateless.StateMachine transition. Every
// scenario state is configured with a dynamic, guarded transition on this
// trigger: the selector function below runs applySettings itself and
// rejects the transition (returning the error instead of a destination)
// when the EC write sequence fails. A rejected transition leaves the
// machine's current state untouched — it is the write-ahead gate for
// every call to Fire, not a label applied after the fact.
const applyTrigger = "apply"

// fireArgs bundles the Fire(applyTrigger, ...) payload: the settings to
// write and the scenario label the machine should land on if they apply
// cleanly.
type fireArgs struct {
	settings Settings
	dest     Scenario
}

// Manager wraps a shared *ec.Controller and *fan.Controller and exposes
// apply_settings / get_current_info. It never opens its own EC transport.
type Manager struct {
	ctl *ec.Controller
	fan *fan.Controller
	log zerolog.Logger
	sm  *stateless.StateMachine
}

// NewManager builds a Manager over a shared EC Controller and fan
// Controller. The initial state mirrors get_current_info() at
// construction time, read once so the state machine starts consistent
// with hardware.
func NewManager(ctl *ec.Controller, fc *fan.Controller, log zerolog.Logger) (*Manager, error) {
	m := &Manager{ctl: ctl, fan: fc, log: log}

	initial := Custom
	if info, err := m.detect(); err == nil {
		initial = info.Current
	}

	sm := stateless.NewStateMachine(initial)
	for _, s := range []Scenario{Silent, Balanced, HighPerformance, Turbo, SuperBattery, Custom} {
		sm.Configure(s).PermitDynamic(applyTrigger, func(_ context.Context, args ...any) (any, error) {
			fa, ok := args[0].(fireArgs)
			if !ok {
				return nil, fmt.Errorf("scenario: apply trigger fired with unexpected argument type")
			}
			if err := m.applySettings(fa.settings); err != nil {
				return nil, err
			}
			return fa.dest, nil
		})
	}
	m.sm = sm

	return m, nil
}

// SetScenario decomposes s into Settings and fires the state machine's
// apply trigger, correlating the whole operation with a fresh request ID
// for logging. Custom is a no-op: the manager never synthesizes settings
// for a user-defined scenario, so the machine is never fired for it here.
func (m *Manager) SetScenario(s Scenario) error {
	settings, ok := settingsFor(s)
	if !ok {
		m.log.Debug().Str("scenario", string(s)).Msg("scenario has no settings mapping, no-op")
		return nil
	}
	return m.fire(s, settings)
}

// ApplySettings fires the same guarded apply trigger as SetScenario, but
// against a caller-supplied Settings bundle rather than one derived from
// the Scenario table — the path a Custom profile's saved settings take,
// since the manager never synthesizes a table entry for Custom.
func (m *Manager) ApplySettings(s Settings) error {
	return m.fire(Custom, s)
}

// fire drives the state machine's sole trigger. The transition's guard
// (configured in NewManager) is what actually performs applySettings; if
// it fails, stateless rejects the transition before the machine's current
// state changes, so a failed apply leaves CurrentMachineState reporting
// whatever scenario was last successfully applied.
func (m *Manager) fire(dest Scenario, settings Settings) error {
	reqID := uuid.New()
	log := m.log.With().Str("request_id", reqID.String()).Str("scenario", string(dest)).Logger()

	if err := m.sm.Fire(applyTrigger, fireArgs{settings: settings, dest: dest}); err != nil {
		log.Error().Err(err).Msg("scenario apply failed, state machine rejected transition")
		return err
	}

	log.Info().Msg("scenario applied")
	return nil
}

// CurrentMachineState returns the scenario the state machine last
// transitioned into — i.e. the last scenario whose settings were
// successfully applied through Fire, or the initial state NewManager
// detected if nothing has been applied yet. Unlike GetCurrentInfo, which
// re-derives a scenario from live EC register reads and can never report
// Custom, this reflects Custom accurately and never advances on a failed
// apply.
func (m *Manager) CurrentMachineState() (Scenario, error) {
	state, err := m.sm.State(context.Background())
	if err != nil {
		return "", fmt.Errorf("scenario: read machine state: %w", err)
	}
	s, ok := state.(Scenario)
	if !ok {
		return "", fmt.Errorf("scenario: machine state has unexpected type %T", state)
	}
	return s, nil
}

// applySettings performs the 6-step ordered write sequence from spec §4.4.
// The first failure aborts the sequence and is wrapped in a FailureError
// naming the 1-based step.
func (m *Manager) applySettings(s Settings) error {
	if err := m.ctl.Write(ec.AddrShiftMode, byte(s.ShiftMode)); err != nil {
		return &FailureError{Step: 1, Err: err}
	}

	var superBatteryByte byte
	if s.SuperBattery {
		superBatteryByte = 0x01
	}
	if err := m.ctl.Write(ec.AddrSuperBattery, superBatteryByte); err != nil {
		return &FailureError{Step: 2, Err: err}
	}

	if err := m.fan.SetFanMode(s.FanMode); err != nil {
		return &FailureError{Step: 3, Err: err}
	}

	if err := m.fan.SetCoolerBoost(s.CoolerBoost); err != nil {
		return &FailureError{Step: 4, Err: err}
	}

	if s.CPUFanCurve != nil {
		if err := m.fan.SetCPUFanCurve(*s.CPUFanCurve); err != nil {
			return &FailureError{Step: 5, Err: err}
		}
	}

	if s.GPUFanCurve != nil {
		if err := m.fan.SetGPUFanCurve(*s.GPUFanCurve); err != nil {
			return &FailureError{Step: 6, Err: err}
		}
	}

	return nil
}

// GetCurrentInfo reads SHIFT_MODE and SUPER_BATTERY and derives the
// currently detected scenario, then attaches the state machine's
// CurrentMachineState. Fan mode and curves are not examined — two
// different user actions may produce the same detected scenario, and
// Current (unlike MachineState) never detects Custom.
func (m *Manager) GetCurrentInfo() (Info, error) {
	info, err := m.detect()
	if err != nil {
		return Info{}, err
	}

	if m.sm != nil {
		if ms, err := m.CurrentMachineState(); err == nil {
			info.MachineState = ms
		}
	}

	return info, nil
}

func (m *Manager) detect() (Info, error) {
	shiftRaw, err := m.ctl.Read(ec.AddrShiftMode)
	if err != nil {
		return Info{}, fmt.Errorf("scenario: read shift mode: %w", err)
	}
	sbRaw, err := m.ctl.Read(ec.AddrSuperBattery)
	if err != nil {
		return Info{}, fmt.Errorf("scenario: read super battery: %w", err)
	}

	shift := DecodeShiftMode(shiftRaw)
	superBattery := sbRaw&0x01 != 0

	info := Info{ShiftMode: shift, SuperBattery: superBattery}

	if superBattery {
		info.Current = SuperBattery
		return info, nil
	}

	switch shift {
	case ShiftEcoSilent:
		info.Current = Silent
	case ShiftSport:
		info.Current = HighPerformance
	case ShiftTurbo:
		info.Current = Turbo
	default:
		info.Current = Balanced
	}

	return info, nil
}
