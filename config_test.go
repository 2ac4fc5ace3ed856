package ecs

import (
	"testing"
	"time"

	"github.com/TheBitDrifter/table"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, time.Second/60, cfg.Step())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("COMET_STEP_RATE", "30")
	t.Setenv("COMET_ENTITY_CAPACITY", "4096")
	t.Setenv("COMET_DEBUG_CHECKS", "true")
	t.Setenv("COMET_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.StepRate)
	assert.Equal(t, 4096, cfg.EntityCapacity)
	assert.True(t, cfg.DebugChecks)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero step rate", func(c *Config) { c.StepRate = 0 }, true},
		{"negative capacity", func(c *Config) { c.EntityCapacity = -1 }, true},
		{"zero max steps", func(c *Config) { c.MaxStepsPerAdvance = 0 }, true},
		{"zero prefab capacity", func(c *Config) { c.PrefabCapacity = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"empty log level", func(c *Config) { c.LogLevel = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("COMET_MAX_STEPS_PER_ADVANCE", "0")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestWithSchemaSharesIDs(t *testing.T) {
	schema := table.Factory.NewSchema()
	a := NewWorld(WithSchema(schema))
	b := NewWorld(WithSchema(schema))

	healthA := FactoryNewComponent[Health](a)
	posB := FactoryNewComponent[Position](b)
	posA := FactoryNewComponent[Position](a)
	healthB := FactoryNewComponent[Health](b)

	assert.Equal(t, posA.ID(), posB.ID())
	assert.Equal(t, healthA.ID(), healthB.ID())
}

func TestNewStatsdClientRequiresAddress(t *testing.T) {
	_, err := NewStatsdClient("", nil)
	assert.Error(t, err)
}

func TestNewWorldFallsBackOnInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepRate = 0
	cfg.EntityCapacity = -1
	cfg.PrefabCapacity = 0
	cfg.MaxStepsPerAdvance = -3
	cfg.LogLevel = "loud"
	cfg.DebugChecks = true

	var w *World
	require.NotPanics(t, func() { w = NewWorld(WithConfig(cfg)) })
	got := w.Config()
	def := DefaultConfig()
	assert.Equal(t, def.StepRate, got.StepRate)
	assert.Equal(t, def.EntityCapacity, got.EntityCapacity)
	assert.Equal(t, def.PrefabCapacity, got.PrefabCapacity)
	assert.Equal(t, def.MaxStepsPerAdvance, got.MaxStepsPerAdvance)
	assert.Equal(t, def.LogLevel, got.LogLevel)
	assert.True(t, got.DebugChecks, "valid fields are kept")
	require.NoError(t, got.Validate())

	var s *Scheduler
	require.NotPanics(t, func() { s = NewScheduler(w) })
	assert.Equal(t, time.Second/60, s.Step())

	FactoryNewComponent[Position](w)
	require.NoError(t, w.RegisterPrefab("p", Position{}))
	assert.True(t, w.HasPrefab("p"))
}

func TestNewWorldPanicsOnInvalidConfigWhenStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepRate = 0
	cfg.PanicOnMisconfiguration = true
	assert.Panics(t, func() { NewWorld(WithConfig(cfg)) })
}

func TestConfigStepGuardsZeroRate(t *testing.T) {
	assert.Equal(t, DefaultConfig().Step(), Config{}.Step())
}

func TestConfigValidateWrapsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepRate = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
