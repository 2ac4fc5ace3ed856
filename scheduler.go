package ecs

import (
	"errors"
	"slices"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// System is a unit of per-tick logic with an explicit component signature.
// Run may only read columns of components listed in Requires.
type System struct {
	Name     string
	Requires []ComponentHandle
	Excludes []ComponentHandle
	Run      func(ctx *SystemContext) error
}

type registeredSystem struct {
	System
	query    *Query
	declared [MaxComponentTypes]bool
}

// SystemContext is handed to a running system.
type SystemContext struct {
	world  *World
	system *registeredSystem
	dt     time.Duration
	tick   uint64
	logger zerolog.Logger
}

func (ctx *SystemContext) World() *World {
	return ctx.world
}

// DeltaTime is the duration passed to Tick, unchanged.
func (ctx *SystemContext) DeltaTime() time.Duration {
	return ctx.dt
}

func (ctx *SystemContext) CurrentTick() uint64 {
	return ctx.tick
}

// Logger is the world logger with the system name attached.
func (ctx *SystemContext) Logger() *zerolog.Logger {
	return &ctx.logger
}

// Query matches the system's declared signature.
func (ctx *SystemContext) Query() *Query {
	return ctx.system.query
}

// Cursor returns a fresh cursor over the system's query.
func (ctx *SystemContext) Cursor() *Cursor {
	return newCursor(ctx.system.query, ctx.world)
}

// ColumnFor is Column restricted to the components the running system
// declared.
func (c ComponentType[T]) ColumnFor(ctx *SystemContext, a *Archetype) ([]T, error) {
	if c.id >= MaxComponentTypes || !ctx.system.declared[c.id] {
		return nil, eris.Wrapf(ErrUndeclaredComponent, "system %s reads %s", ctx.system.Name, c)
	}
	return c.Column(a)
}

// Scheduler runs registered systems against one world, in registration order,
// once per fixed step.
type Scheduler struct {
	world   *World
	systems []*registeredSystem
	init    *registeredSystem
	initRan bool

	step        time.Duration
	maxSteps    int
	accumulator time.Duration
	tick        uint64

	logger  *zerolog.Logger
	metrics statsd.ClientInterface
}

func newScheduler(w *World) *Scheduler {
	return &Scheduler{
		world:    w,
		systems:  make([]*registeredSystem, 0),
		step:     w.config.Step(),
		maxSteps: w.config.MaxStepsPerAdvance,
		logger:   &w.logger,
		metrics:  w.metrics,
	}
}

// NewScheduler creates a scheduler stepping at w's configured rate.
func NewScheduler(w *World) *Scheduler {
	return newScheduler(w)
}

// RegisterSystems validates every system before registering any of them, so a
// single invalid or duplicate system leaves the scheduler unchanged.
func (s *Scheduler) RegisterSystems(systems ...System) error {
	prepared := make([]*registeredSystem, 0, len(systems))
	names := make([]string, 0, len(systems))
	for _, system := range systems {
		if slices.Contains(names, system.Name) {
			return eris.Wrapf(ErrDuplicateSystem, "duplicate system %q in slice", system.Name)
		}
		if s.isRegistered(system.Name) {
			return eris.Wrapf(ErrDuplicateSystem, "system %q is already registered", system.Name)
		}
		rs, err := s.prepare(system)
		if err != nil {
			return err
		}
		names = append(names, system.Name)
		prepared = append(prepared, rs)
	}

	for _, rs := range prepared {
		s.systems = append(s.systems, rs)
		s.logger.Debug().
			Str("system", rs.Name).
			Int("requires", len(rs.Requires)).
			Int("excludes", len(rs.Excludes)).
			Msg("system registered")
	}
	return nil
}

// RegisterInitSystem sets a system that runs once, before the first tick.
func (s *Scheduler) RegisterInitSystem(system System) error {
	rs, err := s.prepare(system)
	if err != nil {
		return err
	}
	s.init = rs
	return nil
}

func (s *Scheduler) prepare(system System) (*registeredSystem, error) {
	if system.Name == "" {
		return nil, eris.Wrap(ErrInvalidSystem, "system name must not be empty")
	}
	if system.Run == nil {
		return nil, eris.Wrapf(ErrInvalidSystem, "system %q has no run function", system.Name)
	}
	query, err := s.world.Query(system.Requires, system.Excludes)
	if err != nil {
		return nil, eris.Wrapf(err, "system %q", system.Name)
	}
	rs := &registeredSystem{System: system, query: query}
	for _, h := range system.Requires {
		rs.declared[h.ID()] = true
	}
	for _, h := range system.Excludes {
		if rs.declared[h.ID()] {
			return nil, eris.Wrapf(ErrInvalidSystem, "system %q both requires and excludes %s", system.Name, h)
		}
	}
	return rs, nil
}

func (s *Scheduler) isRegistered(name string) bool {
	return slices.ContainsFunc(s.systems, func(rs *registeredSystem) bool { return rs.Name == name })
}

func (s *Scheduler) SystemNames() []string {
	names := make([]string, len(s.systems))
	for i, rs := range s.systems {
		names[i] = rs.Name
	}
	return names
}

func (s *Scheduler) CurrentTick() uint64 {
	return s.tick
}

// Tick runs the init system if it has not run yet, then every system once,
// handing dt through. Changes deferred by a system are applied before the
// next system starts.
func (s *Scheduler) Tick(dt time.Duration) error {
	tickStart := time.Now()
	if s.init != nil && !s.initRan {
		s.initRan = true
		if err := s.run(s.init, dt); err != nil {
			return eris.Wrap(err, "init system generated an error")
		}
	}
	for _, rs := range s.systems {
		systemStart := time.Now()
		if err := s.run(rs, dt); err != nil {
			return eris.Wrapf(err, "system %s generated an error", rs.Name)
		}
		emitTickStat(s.metrics, s.logger, systemStart, rs.Name)
	}
	s.tick++

	emitTickStat(s.metrics, s.logger, tickStart, "full_tick")
	emitGauge(s.metrics, s.logger, "entities", s.world.Len())
	emitGauge(s.metrics, s.logger, "archetypes", s.world.ArchetypeCount())
	return nil
}

func (s *Scheduler) run(rs *registeredSystem, dt time.Duration) error {
	ctx := &SystemContext{
		world:  s.world,
		system: rs,
		dt:     dt,
		tick:   s.tick,
		logger: s.logger.With().Str("system", rs.Name).Logger(),
	}
	runErr := rs.Run(ctx)
	if w := s.world; w.Locked() {
		discarded := w.opQueue.len()
		s.logger.Error().
			Str("system", rs.Name).
			Int("locks", w.locks).
			Int("discarded_operations", discarded).
			Msg("system returned with the world locked")
		// Changes queued under a leaked lock belong to this system and are
		// dropped, not replayed by the next flush.
		w.locks = 0
		w.opQueue.reset()
		lockErr := eris.Wrapf(ErrWorldLocked,
			"system returned without releasing its cursors, %d deferred changes discarded", discarded)
		runErr = errors.Join(runErr, lockErr, w.flushErr)
		w.flushErr = nil
		return runErr
	}
	if runErr != nil {
		return runErr
	}
	return s.world.Flush()
}

// Advance feeds wall-clock time to the fixed-step loop and runs one Tick per
// whole step, at most MaxStepsPerAdvance times. Time beyond that bound is
// discarded rather than carried into the next call.
func (s *Scheduler) Advance(delta time.Duration) (int, error) {
	s.accumulator += delta
	steps := 0
	for s.accumulator >= s.step && steps < s.maxSteps {
		if err := s.Tick(s.step); err != nil {
			return steps, err
		}
		s.accumulator -= s.step
		steps++
	}
	if s.accumulator >= s.step {
		dropped := s.accumulator - s.accumulator%s.step
		s.logger.Warn().Dur("dropped", dropped).Int("steps", steps).Msg("simulation falling behind")
		s.accumulator %= s.step
	}
	return steps, nil
}

// Alpha is the fraction of a step left in the accumulator, for interpolating
// rendered state between the last two ticks.
func (s *Scheduler) Alpha() float64 {
	return float64(s.accumulator) / float64(s.step)
}

func (s *Scheduler) Step() time.Duration {
	return s.step
}
