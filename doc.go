/*
Package ecs provides an archetype-based Entity-Component-System store for fixed-step simulations.

Entities holding the same set of component types share one archetype table, where every
component type is a tightly packed column. Systems iterate those columns directly, and
structural changes move an entity's row between tables.

Core Concepts:

  - Entity: An (index, generation) handle. A despawned handle stays dead even after its index is reused.
  - Component: A plain data record registered with a World. Registration assigns a stable id.
  - Archetype: The table of every entity holding exactly one set of component types.
  - Query: A cached selection of archetypes by required and excluded components.
  - System: Per-tick logic with a declared signature, run by a Scheduler.

Basic Usage:

	world := ecs.Factory.NewWorld()

	// Register components
	position := ecs.FactoryNewComponent[Position](world)
	velocity := ecs.FactoryNewComponent[Velocity](world)

	// Create entities
	e, _ := world.Spawn(Position{}, Velocity{X: 1})

	// Query entities and process them
	query, err := world.Query([]ecs.ComponentHandle{position, velocity}, nil)
	if err != nil {
		// handle error
	}
	cursor := ecs.Factory.NewCursor(query, world)

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

While a cursor is iterating the world is locked. Spawn, Despawn, Add and Remove fail with
ErrWorldLocked; their Enqueue variants defer the change until the cursor finishes.

Adding a component an entity already holds fails with ErrDuplicateComponent. Use
ComponentType.Set to overwrite a value in place.
*/
package ecs
