package bench

import (
	"testing"

	comet "github.com/cometengine/ecs"
)

const (
	nPos    = 9000
	nPosVel = 1000
)

type Position struct {
	X float64
	Y float64
}

type Velocity struct {
	X float64
	Y float64
}

func setupComet(b *testing.B) (*comet.World, comet.ComponentType[Position], comet.ComponentType[Velocity]) {
	b.Helper()
	world := comet.Factory.NewWorld()
	position := comet.FactoryNewComponent[Position](world)
	velocity := comet.FactoryNewComponent[Velocity](world)

	for range nPosVel {
		if _, err := world.Spawn(Position{}, Velocity{X: 1, Y: 1}); err != nil {
			b.Fatal(err)
		}
	}
	for range nPos {
		if _, err := world.Spawn(Position{}); err != nil {
			b.Fatal(err)
		}
	}
	return world, position, velocity
}

func BenchmarkIterCometCursor(b *testing.B) {
	b.StopTimer()
	world, position, velocity := setupComet(b)
	query, err := world.Query([]comet.ComponentHandle{position, velocity}, nil)
	if err != nil {
		b.Fatal(err)
	}
	cursor := comet.Factory.NewCursor(query, world)
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		for cursor.Next() {
			pos := position.GetFromCursor(cursor)
			vel := velocity.GetFromCursor(cursor)

			pos.X += vel.X
			pos.Y += vel.Y
		}
	}
}

func BenchmarkIterCometColumns(b *testing.B) {
	b.StopTimer()
	world, position, velocity := setupComet(b)
	query, err := world.Query([]comet.ComponentHandle{position, velocity}, nil)
	if err != nil {
		b.Fatal(err)
	}
	cursor := comet.Factory.NewCursor(query, world)
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		for arch := range cursor.Archetypes() {
			positions := position.MustColumn(arch)
			velocities := velocity.MustColumn(arch)
			for j := range positions {
				positions[j].X += velocities[j].X
				positions[j].Y += velocities[j].Y
			}
		}
	}
}

func BenchmarkIterCometEach2(b *testing.B) {
	b.StopTimer()
	world, position, velocity := setupComet(b)
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		err := comet.Each2(world, position, velocity, func(_ comet.Entity, pos *Position, vel *Velocity) {
			pos.X += vel.X
			pos.Y += vel.Y
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAddRemoveComet(b *testing.B) {
	b.StopTimer()
	world, _, velocity := setupComet(b)
	position := comet.FactoryNewComponent[Position](world)
	entities := make([]comet.Entity, 0, nPos)
	query, err := world.Query([]comet.ComponentHandle{position}, []comet.ComponentHandle{velocity})
	if err != nil {
		b.Fatal(err)
	}
	for _, arch := range query.Matches(world) {
		entities = append(entities, arch.Entities()...)
	}
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		for _, e := range entities {
			if err := velocity.Add(world, e, Velocity{}); err != nil {
				b.Fatal(err)
			}
		}
		for _, e := range entities {
			if _, err := velocity.Remove(world, e); err != nil {
				b.Fatal(err)
			}
		}
	}
}
