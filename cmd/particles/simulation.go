package main

import (
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rotisserie/eris"

	"github.com/cometengine/ecs"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Lifetime struct {
	Remaining time.Duration
}

type Glyph struct {
	Rune  rune
	Color tcell.Color
}

const sparkPrefab = "spark"

var sparkColors = []tcell.Color{
	tcell.ColorYellow,
	tcell.ColorOrange,
	tcell.ColorRed,
	tcell.ColorWhite,
}

type simulation struct {
	world     *ecs.World
	scheduler *ecs.Scheduler
	rng       *rand.Rand

	position ecs.ComponentType[Position]
	velocity ecs.ComponentType[Velocity]
	lifetime ecs.ComponentType[Lifetime]
	glyph    ecs.ComponentType[Glyph]

	width, height int
	target        int
}

func newSimulation(world *ecs.World, target, width, height int, seed int64) (*simulation, error) {
	s := &simulation{
		world:    world,
		rng:      rand.New(rand.NewSource(seed)),
		position: ecs.FactoryNewComponent[Position](world),
		velocity: ecs.FactoryNewComponent[Velocity](world),
		lifetime: ecs.FactoryNewComponent[Lifetime](world),
		glyph:    ecs.FactoryNewComponent[Glyph](world),
		width:    width,
		height:   height,
		target:   target,
	}
	if err := world.RegisterPrefab(sparkPrefab, Position{}, Velocity{}, Lifetime{}, Glyph{Rune: '*'}); err != nil {
		return nil, err
	}

	s.scheduler = ecs.Factory.NewScheduler(world)
	err := s.scheduler.RegisterSystems(
		ecs.System{
			Name:     "emitter",
			Requires: []ecs.ComponentHandle{s.lifetime},
			Run:      s.emit,
		},
		ecs.System{
			Name:     "movement",
			Requires: []ecs.ComponentHandle{s.position, s.velocity},
			Run:      s.move,
		},
		ecs.System{
			Name:     "aging",
			Requires: []ecs.ComponentHandle{s.lifetime},
			Run:      s.age,
		},
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to register systems")
	}
	return s, nil
}

func (s *simulation) resize(width, height int) {
	s.width, s.height = width, height
}

// emit tops the particle count back up to the target, spawning from the
// spark prefab and randomizing the copy.
func (s *simulation) emit(ctx *ecs.SystemContext) error {
	w := ctx.World()
	for missing := s.target - ctx.Query().Count(w); missing > 0; missing-- {
		e, err := w.SpawnPrefab(sparkPrefab)
		if err != nil {
			return err
		}
		err = s.position.Set(w, e, Position{
			X: float64(s.width) / 2,
			Y: float64(s.height) / 2,
		})
		if err != nil {
			return err
		}
		err = s.velocity.Set(w, e, Velocity{
			X: (s.rng.Float64()*2 - 1) * 20,
			Y: (s.rng.Float64()*2 - 1) * 10,
		})
		if err != nil {
			return err
		}
		err = s.lifetime.Set(w, e, Lifetime{Remaining: time.Duration(1+s.rng.Intn(4)) * time.Second})
		if err != nil {
			return err
		}
		err = s.glyph.Set(w, e, Glyph{Rune: '*', Color: sparkColors[s.rng.Intn(len(sparkColors))]})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *simulation) move(ctx *ecs.SystemContext) error {
	dt := ctx.DeltaTime().Seconds()
	maxX, maxY := float64(s.width-1), float64(s.height-1)
	for arch := range ctx.Cursor().Archetypes() {
		positions, err := s.position.ColumnFor(ctx, arch)
		if err != nil {
			return err
		}
		velocities, err := s.velocity.ColumnFor(ctx, arch)
		if err != nil {
			return err
		}
		for i := range positions {
			p, v := &positions[i], &velocities[i]
			p.X += v.X * dt
			p.Y += v.Y * dt
			if p.X < 0 || p.X > maxX {
				v.X = -v.X
				p.X = min(max(p.X, 0), maxX)
			}
			if p.Y < 0 || p.Y > maxY {
				v.Y = -v.Y
				p.Y = min(max(p.Y, 0), maxY)
			}
		}
	}
	return nil
}

func (s *simulation) age(ctx *ecs.SystemContext) error {
	w := ctx.World()
	cursor := ctx.Cursor()
	for cursor.Next() {
		l := s.lifetime.GetFromCursor(cursor)
		l.Remaining -= ctx.DeltaTime()
		if l.Remaining <= 0 {
			if err := w.EnqueueDespawn(cursor.Entity()); err != nil {
				cursor.Reset()
				return err
			}
		}
	}
	return nil
}

func (s *simulation) draw(screen tcell.Screen) error {
	screen.Clear()
	err := ecs.Each2(s.world, s.position, s.glyph, func(_ ecs.Entity, p *Position, g *Glyph) {
		screen.SetContent(int(p.X), int(p.Y), g.Rune, nil, tcell.StyleDefault.Foreground(g.Color))
	})
	screen.Show()
	return err
}
