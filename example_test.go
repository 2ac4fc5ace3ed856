package ecs_test

import (
	"fmt"
	"time"

	"github.com/cometengine/ecs"
)

// Position is a simple component for 2D coordinates
type Position struct {
	X float64
	Y float64
}

// Velocity is a simple component for 2D movement
type Velocity struct {
	X float64
	Y float64
}

// Name is a simple component for entity identification
type Name struct {
	Value string
}

// Example shows basic usage with entity creation and queries
func Example_basic() {
	world := ecs.Factory.NewWorld()

	// Define components
	position := ecs.FactoryNewComponent[Position](world)
	velocity := ecs.FactoryNewComponent[Velocity](world)
	name := ecs.FactoryNewComponent[Name](world)

	// Create entities
	for range 5 {
		world.Spawn(Position{})
	}
	for range 3 {
		world.Spawn(Position{}, Velocity{})
	}
	player, _ := world.Spawn(Position{X: 10, Y: 20}, Velocity{X: 1, Y: 2}, Name{Value: "Player"})

	// Query for all entities with position and velocity
	query, _ := world.Query([]ecs.ComponentHandle{position, velocity}, nil)
	cursor := ecs.Factory.NewCursor(query, world)

	matchCount := 0
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
		matchCount++
	}

	pos, _ := position.Get(world, player)
	n, _ := name.Get(world, player)
	fmt.Printf("Found %d entities with position and velocity\n", matchCount)
	fmt.Printf("%s moved to (%.1f, %.1f)\n", n.Value, pos.X, pos.Y)

	// Output:
	// Found 4 entities with position and velocity
	// Player moved to (11.0, 22.0)
}

// Example shows adding, replacing and removing components
func Example_components() {
	world := ecs.Factory.NewWorld()
	position := ecs.FactoryNewComponent[Position](world)
	velocity := ecs.FactoryNewComponent[Velocity](world)

	e, _ := world.Spawn(Position{X: 1})
	velocity.Add(world, e, Velocity{X: 5})

	err := velocity.Add(world, e, Velocity{X: 6})
	fmt.Println("add twice:", err != nil)

	velocity.Set(world, e, Velocity{X: 7})
	v, _ := velocity.Get(world, e)
	fmt.Println("after set:", v.X)

	removed, _ := velocity.Remove(world, e)
	fmt.Println("removed:", removed.X, "still has velocity:", velocity.Has(world, e))
	fmt.Println("still has position:", position.Has(world, e))

	// Output:
	// add twice: true
	// after set: 7
	// removed: 7 still has velocity: false
	// still has position: true
}

// Example shows a fixed-step scheduler driving a system
func Example_scheduler() {
	cfg := ecs.DefaultConfig()
	cfg.StepRate = 10
	world := ecs.Factory.NewWorld(ecs.WithConfig(cfg))
	position := ecs.FactoryNewComponent[Position](world)
	velocity := ecs.FactoryNewComponent[Velocity](world)
	e, _ := world.Spawn(Position{}, Velocity{X: 10})

	scheduler := ecs.Factory.NewScheduler(world)
	scheduler.RegisterSystems(ecs.System{
		Name:     "movement",
		Requires: []ecs.ComponentHandle{position, velocity},
		Run: func(ctx *ecs.SystemContext) error {
			dt := ctx.DeltaTime().Seconds()
			return ecs.Each2(ctx.World(), position, velocity, func(_ ecs.Entity, p *Position, v *Velocity) {
				p.X += v.X * dt
			})
		},
	})

	steps, _ := scheduler.Advance(250 * time.Millisecond)
	pos, _ := position.Get(world, e)
	fmt.Printf("steps: %d, x: %.1f, alpha: %.1f\n", steps, pos.X, scheduler.Alpha())

	// Output:
	// steps: 2, x: 2.0, alpha: 0.5
}
