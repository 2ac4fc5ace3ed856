package ecs

import (
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config holds the tunables of a World and its Scheduler.
//
// Every field can be overridden from the environment by LoadConfig, using the
// variable named in the field's tag.
type Config struct {
	// EntityCapacity pre-sizes the entity allocator and location map.
	EntityCapacity int `config:"COMET_ENTITY_CAPACITY"`
	// StepRate is the fixed update rate in steps per second.
	StepRate int `config:"COMET_STEP_RATE"`
	// MaxStepsPerAdvance bounds catch-up work in one Advance call.
	MaxStepsPerAdvance int `config:"COMET_MAX_STEPS_PER_ADVANCE"`
	PrefabCapacity     int `config:"COMET_PREFAB_CAPACITY"`
	// DebugChecks validates storage consistency after each structural
	// mutation and panics on violation.
	DebugChecks bool `config:"COMET_DEBUG_CHECKS"`
	// PanicOnMisconfiguration turns unregistered component types into panics.
	PanicOnMisconfiguration bool   `config:"COMET_PANIC_ON_MISCONFIGURATION"`
	LogLevel                string `config:"COMET_LOG_LEVEL"`
	StatsdAddress           string `config:"COMET_STATSD_ADDRESS"`
}

func DefaultConfig() Config {
	return Config{
		EntityCapacity:     1024,
		StepRate:           60,
		MaxStepsPerAdvance: 5,
		PrefabCapacity:     256,
		LogLevel:           zerolog.InfoLevel.String(),
	}
}

// LoadConfig returns DefaultConfig overlaid with any COMET_* environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return Config{}, eris.Wrap(err, "failed to load config from environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.EntityCapacity < 0 {
		return eris.Wrapf(ErrInvalidConfig, "entity capacity must not be negative, got %d", c.EntityCapacity)
	}
	if c.StepRate <= 0 {
		return eris.Wrapf(ErrInvalidConfig, "step rate must be positive, got %d", c.StepRate)
	}
	if c.MaxStepsPerAdvance <= 0 {
		return eris.Wrapf(ErrInvalidConfig, "max steps per advance must be positive, got %d", c.MaxStepsPerAdvance)
	}
	if c.PrefabCapacity <= 0 {
		return eris.Wrapf(ErrInvalidConfig, "prefab capacity must be positive, got %d", c.PrefabCapacity)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Step is the duration of one fixed update. A non-positive StepRate falls
// back to the default rate.
func (c Config) Step() time.Duration {
	rate := c.StepRate
	if rate <= 0 {
		rate = DefaultConfig().StepRate
	}
	return time.Second / time.Duration(rate)
}

// sanitized returns c with every out-of-range field replaced by its default.
func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.EntityCapacity < 0 {
		c.EntityCapacity = def.EntityCapacity
	}
	if c.StepRate <= 0 {
		c.StepRate = def.StepRate
	}
	if c.MaxStepsPerAdvance <= 0 {
		c.MaxStepsPerAdvance = def.MaxStepsPerAdvance
	}
	if c.PrefabCapacity <= 0 {
		c.PrefabCapacity = def.PrefabCapacity
	}
	if _, err := c.Level(); err != nil {
		c.LogLevel = def.LogLevel
	}
	return c
}

func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, eris.Wrapf(ErrInvalidConfig, "invalid log level %q: %v", c.LogLevel, err)
	}
	return level, nil
}
