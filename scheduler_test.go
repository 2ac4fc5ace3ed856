package ecs

import (
	"errors"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(*SystemContext) error { return nil }

func TestRegisterSystemsValidation(t *testing.T) {
	w, c := newTestWorld(t)
	unregistered := ComponentType[int]{id: MaxComponentTypes - 1}

	tests := []struct {
		name    string
		systems []System
		wantErr error
	}{
		{"empty name", []System{{Run: noop}}, ErrInvalidSystem},
		{"missing run", []System{{Name: "a"}}, ErrInvalidSystem},
		{"duplicate in slice", []System{{Name: "a", Run: noop}, {Name: "a", Run: noop}}, ErrDuplicateSystem},
		{
			"requires and excludes overlap",
			[]System{{Name: "a", Requires: []ComponentHandle{c.position}, Excludes: []ComponentHandle{c.position}, Run: noop}},
			ErrInvalidSystem,
		},
		{"unregistered component", []System{{Name: "a", Requires: []ComponentHandle{unregistered}, Run: noop}}, ErrUnregisteredComponentType},
		{"zero-value required handle", []System{{Name: "a", Requires: []ComponentHandle{ComponentType[Position]{}}, Run: noop}}, ErrUnregisteredComponentType},
		{"zero-value excluded handle", []System{{Name: "a", Excludes: []ComponentHandle{ComponentType[Health]{}}, Run: noop}}, ErrUnregisteredComponentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(w)
			valid := System{Name: "valid", Run: noop}
			err := s.RegisterSystems(append([]System{valid}, tt.systems...)...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, s.SystemNames(), "registration is all or nothing")
		})
	}

	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(System{Name: "a", Run: noop}))
	assert.ErrorIs(t, s.RegisterSystems(System{Name: "b", Run: noop}, System{Name: "a", Run: noop}), ErrDuplicateSystem)
	assert.Equal(t, []string{"a"}, s.SystemNames())
}

func TestTickRunsSystemsInOrder(t *testing.T) {
	w, c := newTestWorld(t)
	e, err := w.Spawn(Position{}, Velocity{X: 2, Y: 1})
	require.NoError(t, err)

	var order []string
	var seen []time.Duration
	s := Factory.NewScheduler(w)
	require.NoError(t, s.RegisterInitSystem(System{
		Name: "init",
		Run: func(*SystemContext) error {
			order = append(order, "init")
			return nil
		},
	}))
	require.NoError(t, s.RegisterSystems(
		System{
			Name:     "movement",
			Requires: []ComponentHandle{c.position, c.velocity},
			Run: func(ctx *SystemContext) error {
				order = append(order, "movement")
				seen = append(seen, ctx.DeltaTime())
				for arch := range ctx.Cursor().Archetypes() {
					positions, err := c.position.ColumnFor(ctx, arch)
					if err != nil {
						return err
					}
					velocities, err := c.velocity.ColumnFor(ctx, arch)
					if err != nil {
						return err
					}
					for i := range positions {
						positions[i].X += velocities[i].X
						positions[i].Y += velocities[i].Y
					}
				}
				return nil
			},
		},
		System{
			Name: "report",
			Run: func(ctx *SystemContext) error {
				order = append(order, "report")
				return nil
			},
		},
	))

	require.NoError(t, s.Tick(3*time.Millisecond))
	require.NoError(t, s.Tick(5*time.Millisecond))

	assert.Equal(t, []string{"init", "movement", "report", "movement", "report"}, order)
	assert.Equal(t, []time.Duration{3 * time.Millisecond, 5 * time.Millisecond}, seen, "delta time is handed through unchanged")
	assert.Equal(t, uint64(2), s.CurrentTick())

	pos, err := c.position.Get(w, e)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 4, Y: 2}, pos)
}

func TestColumnForRejectsUndeclared(t *testing.T) {
	w, c := newTestWorld(t)
	_, err := w.Spawn(Position{}, Health{})
	require.NoError(t, err)

	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(System{
		Name:     "sneaky",
		Requires: []ComponentHandle{c.position},
		Run: func(ctx *SystemContext) error {
			for arch := range ctx.Cursor().Archetypes() {
				if _, err := c.health.ColumnFor(ctx, arch); err != nil {
					return err
				}
			}
			return nil
		},
	}))
	err = s.Tick(time.Millisecond)
	assert.ErrorIs(t, err, ErrUndeclaredComponent)
	assert.False(t, w.Locked())
}

func TestSystemErrorsStopTheTick(t *testing.T) {
	w, _ := newTestWorld(t)
	boom := errors.New("boom")
	ran := false
	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(
		System{Name: "fails", Run: func(*SystemContext) error { return boom }},
		System{Name: "after", Run: func(*SystemContext) error { ran = true; return nil }},
	))
	err := s.Tick(time.Millisecond)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
	assert.Equal(t, uint64(0), s.CurrentTick())
}

func TestSystemLeavingWorldLocked(t *testing.T) {
	w, c := newTestWorld(t)
	_, err := w.Spawn(Position{})
	require.NoError(t, err)

	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(System{
		Name:     "leaky",
		Requires: []ComponentHandle{c.position},
		Run: func(ctx *SystemContext) error {
			ctx.Cursor().Next()
			return nil
		},
	}))
	assert.ErrorIs(t, s.Tick(time.Millisecond), ErrWorldLocked)
	assert.False(t, w.Locked())
}

func TestLeakedLockDiscardsQueuedChanges(t *testing.T) {
	w, c := newTestWorld(t)
	e, err := w.Spawn(Position{})
	require.NoError(t, err)

	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(System{
		Name:     "leaky",
		Requires: []ComponentHandle{c.position},
		Run: func(ctx *SystemContext) error {
			cursor := ctx.Cursor()
			cursor.Next()
			if err := ctx.World().EnqueueDespawn(cursor.Entity()); err != nil {
				return err
			}
			return ctx.World().EnqueueSpawn(Position{X: 1})
		},
	}))
	assert.ErrorIs(t, s.Tick(time.Millisecond), ErrWorldLocked)
	assert.Equal(t, 0, w.Stats().Pending)
	require.NoError(t, w.Flush())
	assert.True(t, w.Alive(e), "changes queued under a leaked lock are not replayed")
	assert.Equal(t, 1, w.Len())
}

func TestDeferredChangesApplyBetweenSystems(t *testing.T) {
	w, c := newTestWorld(t)
	for range 3 {
		_, err := w.Spawn(Health{Current: 0})
		require.NoError(t, err)
	}
	counted := 0
	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(
		System{
			Name:     "reaper",
			Requires: []ComponentHandle{c.health},
			Run: func(ctx *SystemContext) error {
				cursor := ctx.Cursor()
				for cursor.Next() {
					if c.health.GetFromCursor(cursor).Current <= 0 {
						if err := ctx.World().EnqueueDespawn(cursor.Entity()); err != nil {
							return err
						}
					}
				}
				return nil
			},
		},
		System{
			Name:     "census",
			Requires: []ComponentHandle{c.health},
			Run: func(ctx *SystemContext) error {
				counted = ctx.Query().Count(ctx.World())
				return nil
			},
		},
	))
	require.NoError(t, s.Tick(time.Millisecond))
	assert.Equal(t, 0, counted)
	assert.Equal(t, 0, w.Len())
}

func TestAdvanceFixedStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StepRate = 100
	cfg.MaxStepsPerAdvance = 3
	w := NewWorld(WithConfig(cfg))
	s := NewScheduler(w)
	ticks := 0
	require.NoError(t, s.RegisterSystems(System{
		Name: "count",
		Run: func(ctx *SystemContext) error {
			assert.Equal(t, 10*time.Millisecond, ctx.DeltaTime())
			ticks++
			return nil
		},
	}))

	tests := []struct {
		name      string
		delta     time.Duration
		wantSteps int
		wantAlpha float64
	}{
		{"less than a step", 4 * time.Millisecond, 0, 0.4},
		{"completes a step", 7 * time.Millisecond, 1, 0.1},
		{"two steps", 20 * time.Millisecond, 2, 0.1},
		{"bounded catch-up drops the excess", 100 * time.Millisecond, 3, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := s.Advance(tt.delta)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSteps, steps)
			assert.InDelta(t, tt.wantAlpha, s.Alpha(), 1e-9)
		})
	}
	assert.Equal(t, 6, ticks)
}

type recordingClient struct {
	statsd.NoOpClient
	timings []string
	gauges  map[string]float64
}

func (r *recordingClient) Timing(name string, _ time.Duration, tags []string, _ float64) error {
	r.timings = append(r.timings, name+":"+tags[0])
	return nil
}

func (r *recordingClient) Gauge(name string, value float64, _ []string, _ float64) error {
	r.gauges[name] = value
	return nil
}

func TestTickEmitsMetrics(t *testing.T) {
	client := &recordingClient{gauges: map[string]float64{}}
	w, _ := newTestWorld(t, WithMetrics(client))
	_, err := w.Spawn(Position{})
	require.NoError(t, err)

	s := NewScheduler(w)
	require.NoError(t, s.RegisterSystems(System{Name: "a", Run: noop}))
	require.NoError(t, s.Tick(time.Millisecond))

	assert.Equal(t, []string{"tick:stage:a", "tick:stage:full_tick"}, client.timings)
	assert.Equal(t, 1.0, client.gauges["entities"])
	assert.Equal(t, 2.0, client.gauges["archetypes"])
}
