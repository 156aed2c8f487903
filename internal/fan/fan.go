// Package fan programs fan mode, cooler boost, and fan curves through the
// EC transport, and composes readable fan/temperature state for display.
package fan

import (
	"fmt"

	"github.com/junevm/thermalctl/internal/ec"
	"github.com/junevm/thermalctl/internal/sensor"
	"github.com/rs/zerolog"
)

// Mode is the EC's fan mode enumeration, stored in the low nibble of
// AddrFanMode. Any out-of-range byte decodes as Auto.
type Mode byte

const (
	ModeAuto     Mode = 0
	ModeSilent   Mode = 1
	ModeBasic    Mode = 2
	ModeAdvanced Mode = 3
)

// DecodeMode maps a raw FAN_MODE low nibble to a Mode, defaulting to Auto
// for any value outside {0,1,2,3}.
func DecodeMode(b byte) Mode {
	switch b & 0x0F {
	case byte(ModeSilent):
		return ModeSilent
	case byte(ModeBasic):
		return ModeBasic
	case byte(ModeAdvanced):
		return ModeAdvanced
	default:
		return ModeAuto
	}
}

func (m Mode) String() string {
	switch m {
	case ModeSilent:
		return "Silent"
	case ModeBasic:
		return "Basic"
	case ModeAdvanced:
		return "Advanced"
	default:
		return "Auto"
	}
}

// InvalidSpeedError is returned when a requested fan percentage exceeds
// 100. The caller's value is carried for the error message and for
// programmatic inspection.
type InvalidSpeedError struct {
	Value int
}

func (e *InvalidSpeedError) Error() string {
	return fmt.Sprintf("fan: invalid speed %d%%, must be 0..=100", e.Value)
}

// Point is one (temperature, speed) pair of a fan curve.
type Point struct {
	Temp  int // 0..=100 degrees Celsius
	Speed int // 0..=100 percent
}

// Curve is an ordered sequence of at most ec.FanCurvePoints points, sorted
// by temperature ascending.
type Curve struct {
	Points []Point
}

// DefaultCurve, SilentCurve, and PerformanceCurve are the three built-in
// presets scenarios reference (spec.md §4.4 table).
func DefaultCurve() Curve {
	return Curve{Points: []Point{
		{40, 0}, {50, 30}, {60, 50}, {70, 70}, {80, 90}, {90, 100},
	}}
}

func SilentCurve() Curve {
	return Curve{Points: []Point{
		{50, 0}, {60, 20}, {70, 40}, {80, 60}, {90, 80}, {95, 100},
	}}
}

func PerformanceCurve() Curve {
	return Curve{Points: []Point{
		{35, 30}, {45, 50}, {55, 70}, {65, 85}, {75, 100}, {85, 100},
	}}
}

// SpeedForTemp returns the curve's interpolated speed at temp. An empty
// curve returns 50. Below the first point or above the last point clamps
// to that point's speed. Two consecutive points sharing a temperature are
// treated as a step function (the right point's speed wins) rather than
// dividing by zero.
func (c Curve) SpeedForTemp(temp int) int {
	n := len(c.Points)
	if n == 0 {
		return 50
	}
	if temp <= c.Points[0].Temp {
		return clamp(c.Points[0].Speed)
	}
	if temp >= c.Points[n-1].Temp {
		return clamp(c.Points[n-1].Speed)
	}

	for i := 0; i < n-1; i++ {
		p1, p2 := c.Points[i], c.Points[i+1]
		if temp < p1.Temp || temp >= p2.Temp {
			continue
		}
		if p2.Temp == p1.Temp {
			return clamp(p2.Speed)
		}
		tempRange := float64(p2.Temp - p1.Temp)
		speedRange := float64(p2.Speed - p1.Speed)
		offset := float64(temp - p1.Temp)
		interpolated := float64(p1.Speed) + (offset/tempRange)*speedRange
		return clamp(int(interpolated))
	}

	return 50
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// percentToPWM converts a 0..=100 percent into the EC's 0..=255 PWM byte.
func percentToPWM(percent int) byte {
	return byte((percent * 255) / 100)
}

// Info is the read-back snapshot of fan and temperature state.
type Info struct {
	CPUFanRPM     int
	GPUFanRPM     int
	CPUFanPercent int
	GPUFanPercent int
	CPUTemp       int
	GPUTemp       int
	Mode          Mode
	CoolerBoost   bool
}

// Controller programs the EC's fan registers and composes Info. It holds a
// shared *ec.Controller — never its own — per the single-owner requirement
// in spec.md §9.
type Controller struct {
	ctl    *ec.Controller
	sensor *sensor.Reader
	log    zerolog.Logger
}

// NewController builds a fan Controller over a shared EC Controller and
// sensor Reader.
func NewController(ctl *ec.Controller, sr *sensor.Reader, log zerolog.Logger) *Controller {
	return &Controller{ctl: ctl, sensor: sr, log: log}
}

// GetFanInfo composes Info from the sensor Reader and EC registers.
func (c *Controller) GetFanInfo() (Info, error) {
	cpuRPM, cpuPct := c.sensor.FanRPM(1)
	gpuRPM, gpuPct := c.sensor.FanRPM(2)

	modeRaw, err := c.ctl.Read(ec.AddrFanMode)
	if err != nil {
		return Info{}, fmt.Errorf("fan: read fan mode: %w", err)
	}

	boostRaw, err := c.ctl.Read(ec.AddrCoolerBoost)
	if err != nil {
		return Info{}, fmt.Errorf("fan: read cooler boost: %w", err)
	}

	return Info{
		CPUFanRPM:     cpuRPM,
		GPUFanRPM:     gpuRPM,
		CPUFanPercent: cpuPct,
		GPUFanPercent: gpuPct,
		CPUTemp:       c.sensor.CPUTemp(),
		GPUTemp:       c.sensor.GPUTemp(),
		Mode:          DecodeMode(modeRaw),
		CoolerBoost:   (boostRaw & 0x80) != 0,
	}, nil
}

// SetFanMode writes mode's numeric value to AddrFanMode.
func (c *Controller) SetFanMode(mode Mode) error {
	if err := c.ctl.Write(ec.AddrFanMode, byte(mode)); err != nil {
		return fmt.Errorf("fan: set fan mode: %w", err)
	}
	return nil
}

// SetCoolerBoost performs a read-modify-write of AddrCoolerBoost, setting
// or clearing bit 7 while preserving bits 0..6.
func (c *Controller) SetCoolerBoost(enabled bool) error {
	current, err := c.ctl.Read(ec.AddrCoolerBoost)
	if err != nil {
		return fmt.Errorf("fan: read cooler boost: %w", err)
	}

	var next byte
	if enabled {
		next = current | 0x80
	} else {
		next = current &^ 0x80
	}

	if err := c.ctl.Write(ec.AddrCoolerBoost, next); err != nil {
		return fmt.Errorf("fan: set cooler boost: %w", err)
	}
	return nil
}

// SetCPUFanCurve programs curve at the CPU fan curve base address.
func (c *Controller) SetCPUFanCurve(curve Curve) error {
	return c.applyCurve(ec.AddrCPUFanCurveBase, curve)
}

// SetGPUFanCurve programs curve at the GPU fan curve base address.
func (c *Controller) SetGPUFanCurve(curve Curve) error {
	return c.applyCurve(ec.AddrGPUFanCurveBase, curve)
}

// applyCurve writes up to min(len(points), ec.FanCurvePoints) (temp, PWM)
// pairs starting at base. Extra points are ignored; fewer points leave
// trailing register pairs untouched. Each pair is its own EC transaction —
// there is no rollback if a later pair fails (spec.md §4.3).
func (c *Controller) applyCurve(base byte, curve Curve) error {
	n := len(curve.Points)
	if n > ec.FanCurvePoints {
		n = ec.FanCurvePoints
	}

	for i := 0; i < n; i++ {
		p := curve.Points[i]
		tempAddr := base + byte(i*2)
		speedAddr := tempAddr + 1

		if err := c.ctl.Write(tempAddr, byte(p.Temp)); err != nil {
			return fmt.Errorf("fan: write curve point %d temp: %w", i, err)
		}
		if err := c.ctl.Write(speedAddr, percentToPWM(p.Speed)); err != nil {
			return fmt.Errorf("fan: write curve point %d speed: %w", i, err)
		}
	}
	return nil
}

// SetManualFanSpeed validates both percentages, switches to Advanced mode,
// then pins all 6 curve slots flat at the requested PWM (temperature byte
// 0, speed byte the scaled PWM) for both CPU and GPU.
func (c *Controller) SetManualFanSpeed(cpuPercent, gpuPercent int) error {
	if cpuPercent > 100 {
		return &InvalidSpeedError{Value: cpuPercent}
	}
	if gpuPercent > 100 {
		return &InvalidSpeedError{Value: gpuPercent}
	}

	if err := c.SetFanMode(ModeAdvanced); err != nil {
		return err
	}

	cpuPWM := percentToPWM(cpuPercent)
	gpuPWM := percentToPWM(gpuPercent)

	for i := byte(0); i < ec.FanCurvePoints; i++ {
		if err := c.ctl.Write(ec.AddrCPUFanCurveBase+i*2, 0); err != nil {
			return fmt.Errorf("fan: write manual cpu curve point %d: %w", i, err)
		}
		if err := c.ctl.Write(ec.AddrCPUFanCurveBase+i*2+1, cpuPWM); err != nil {
			return fmt.Errorf("fan: write manual cpu curve point %d: %w", i, err)
		}
		if err := c.ctl.Write(ec.AddrGPUFanCurveBase+i*2, 0); err != nil {
			return fmt.Errorf("fan: write manual gpu curve point %d: %w", i, err)
		}
		if err := c.ctl.Write(ec.AddrGPUFanCurveBase+i*2+1, gpuPWM); err != nil {
			return fmt.Errorf("fan: write manual gpu curve point %d: %w", i, err)
		}
	}

	return nil
}

// ResetToAuto sets fan mode to Auto and disables cooler boost.
func (c *Controller) ResetToAuto() error {
	if err := c.SetFanMode(ModeAuto); err != nil {
		return err
	}
	return c.SetCoolerBoost(false)
}
