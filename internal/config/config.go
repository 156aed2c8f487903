// Package config loads and saves the application's profile configuration,
// merging built-in defaults with a JSON file under the user's config
// directory via koanf, same as the teacher's config loader.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	jsonParser "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/junevm/thermalctl/internal/fan"
	"github.com/junevm/thermalctl/internal/scenario"
)

const configDirName = "thermalctl"

// Profile binds a name to a scenario and a settings bundle. Custom profiles
// carry their own hand-tuned curves, and their Settings are what gets
// applied. Named-scenario profiles carry a copy of the bundle settingsFor
// derives, but applying one goes through SetScenario, which uses the
// scenario table as it is at apply time; their saved Settings are not
// applied.
type Profile struct {
	Name     string            `koanf:"name" json:"name"`
	Scenario scenario.Scenario `koanf:"scenario" json:"scenario"`
	Settings scenario.Settings `koanf:"settings" json:"settings"`
}

// AppConfig is the full persisted application state.
type AppConfig struct {
	ActiveProfile     string    `koanf:"active_profile" json:"active_profile"`
	Profiles          []Profile `koanf:"profiles" json:"profiles"`
	AutoStart         bool      `koanf:"auto_start" json:"auto_start"`
	ApplyOnBoot       bool      `koanf:"apply_on_boot" json:"apply_on_boot"`
	ShowNotifications bool      `koanf:"show_notifications" json:"show_notifications"`
}

func silentSettings() scenario.Settings {
	c := fan.SilentCurve()
	return scenario.Settings{
		ShiftMode:   scenario.ShiftEcoSilent,
		FanMode:     fan.ModeSilent,
		CPUFanCurve: &c,
		GPUFanCurve: &c,
	}
}

func balancedSettings() scenario.Settings {
	c := fan.DefaultCurve()
	return scenario.Settings{
		ShiftMode:   scenario.ShiftComfort,
		FanMode:     fan.ModeAuto,
		CPUFanCurve: &c,
		GPUFanCurve: &c,
	}
}

func highPerformanceSettings() scenario.Settings {
	c := fan.PerformanceCurve()
	return scenario.Settings{
		ShiftMode:   scenario.ShiftSport,
		FanMode:     fan.ModeBasic,
		CPUFanCurve: &c,
		GPUFanCurve: &c,
	}
}

func turboSettings() scenario.Settings {
	c := fan.PerformanceCurve()
	return scenario.Settings{
		ShiftMode:   scenario.ShiftTurbo,
		FanMode:     fan.ModeAdvanced,
		CoolerBoost: true,
		CPUFanCurve: &c,
		GPUFanCurve: &c,
	}
}

func superBatterySettings() scenario.Settings {
	c := fan.SilentCurve()
	return scenario.Settings{
		ShiftMode:    scenario.ShiftEcoSilent,
		FanMode:      fan.ModeSilent,
		SuperBattery: true,
		CPUFanCurve:  &c,
		GPUFanCurve:  &c,
	}
}

// DefaultConfig returns the built-in profile set: one profile per named
// scenario, Balanced active.
func DefaultConfig() AppConfig {
	return AppConfig{
		ActiveProfile: "Balanced",
		Profiles: []Profile{
			{Name: "Silent", Scenario: scenario.Silent, Settings: silentSettings()},
			{Name: "Balanced", Scenario: scenario.Balanced, Settings: balancedSettings()},
			{Name: "High Performance", Scenario: scenario.HighPerformance, Settings: highPerformanceSettings()},
			{Name: "Turbo", Scenario: scenario.Turbo, Settings: turboSettings()},
			{Name: "Super Battery", Scenario: scenario.SuperBattery, Settings: superBatterySettings()},
		},
		AutoStart:         false,
		ApplyOnBoot:       true,
		ShowNotifications: true,
	}
}

// Dir returns the directory the config file lives under, usually
// ~/.config/thermalctl.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", configDirName), nil
}

// Load merges DefaultConfig with config.json on disk, if present, via a
// fresh koanf instance per call.
func Load() (AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return AppConfig{}, fmt.Errorf("config: load defaults: %w", err)
	}

	dir, err := Dir()
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: resolve config dir: %w", err)
	}
	path := filepath.Join(dir, "config.json")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), jsonParser.Parser()); err != nil {
			return AppConfig{}, fmt.Errorf("config: load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to config.json as indented JSON, creating the config
// directory if needed.
func Save(cfg AppConfig) error {
	dir, err := Dir()
	if err != nil {
		return fmt.Errorf("config: resolve config dir: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// GetProfile returns the profile with the given name, if any.
func (c AppConfig) GetProfile(name string) (Profile, bool) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// GetActiveProfile returns the profile named by ActiveProfile, if any.
func (c AppConfig) GetActiveProfile() (Profile, bool) {
	return c.GetProfile(c.ActiveProfile)
}

// SetActiveProfile switches ActiveProfile if name names an existing
// profile, reporting whether it did.
func (c *AppConfig) SetActiveProfile(name string) bool {
	if _, ok := c.GetProfile(name); ok {
		c.ActiveProfile = name
		return true
	}
	return false
}

// AddProfile appends profile if no profile with the same name exists.
func (c *AppConfig) AddProfile(profile Profile) {
	if _, exists := c.GetProfile(profile.Name); !exists {
		c.Profiles = append(c.Profiles, profile)
	}
}

// RemoveProfile deletes the named profile, refusing to remove the last
// remaining one. If the active profile is removed, the first remaining
// profile becomes active.
func (c *AppConfig) RemoveProfile(name string) bool {
	if len(c.Profiles) <= 1 {
		return false
	}
	for i, p := range c.Profiles {
		if p.Name != name {
			continue
		}
		c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
		if c.ActiveProfile == name {
			c.ActiveProfile = c.Profiles[0].Name
		}
		return true
	}
	return false
}
