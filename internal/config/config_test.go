package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasOneProfilePerScenario(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "Balanced", cfg.ActiveProfile)
	assert.Len(t, cfg.Profiles, 5)
	_, ok := cfg.GetActiveProfile()
	assert.True(t, ok)
}

func TestSetActiveProfileRejectsUnknownName(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.SetActiveProfile("DoesNotExist"))
	assert.Equal(t, "Balanced", cfg.ActiveProfile)

	assert.True(t, cfg.SetActiveProfile("Turbo"))
	assert.Equal(t, "Turbo", cfg.ActiveProfile)
}

func TestAddProfileIgnoresDuplicateName(t *testing.T) {
	cfg := DefaultConfig()
	before := len(cfg.Profiles)

	cfg.AddProfile(Profile{Name: "Balanced"})
	assert.Len(t, cfg.Profiles, before)

	cfg.AddProfile(Profile{Name: "MyCustom"})
	assert.Len(t, cfg.Profiles, before+1)
}

func TestRemoveProfileRefusesToRemoveLastOne(t *testing.T) {
	cfg := AppConfig{
		ActiveProfile: "Solo",
		Profiles:      []Profile{{Name: "Solo"}},
	}

	assert.False(t, cfg.RemoveProfile("Solo"))
	assert.Len(t, cfg.Profiles, 1)
}

func TestRemoveProfileReassignsActiveProfile(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, cfg.SetActiveProfile("Turbo"))

	assert.True(t, cfg.RemoveProfile("Turbo"))
	assert.NotEqual(t, "Turbo", cfg.ActiveProfile)
	for _, p := range cfg.Profiles {
		assert.NotEqual(t, "Turbo", p.Name)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.ShowNotifications = false
	require.True(t, cfg.SetActiveProfile("Silent"))

	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Silent", loaded.ActiveProfile)
	assert.False(t, loaded.ShowNotifications)
	assert.Len(t, loaded.Profiles, 5)
}
