package ecs

import (
	"iter"
)

func newCursor(query *Query, world *World) *Cursor {
	return &Cursor{
		query: query,
		world: world,
	}
}

// Next advances to the next matched entity. It returns false, and releases the
// world, once every matched archetype is exhausted.
func (c *Cursor) Next() bool {
	if c.visited < c.remaining {
		c.visited++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.initialize()
	} else {
		c.archIndex++
		c.visited = 0
	}
	for c.archIndex < len(c.archetypes) {
		c.currentArchetype = c.archetypes[c.archIndex]
		c.remaining = c.currentArchetype.Len()

		if c.visited < c.remaining {
			c.visited++
			return true
		}
		c.archIndex++
		c.visited = 0
	}
	c.Reset()
	return false
}

// Entities yields the row and archetype of every matched entity. Component
// accessors taking the cursor work inside the loop.
func (c *Cursor) Entities() iter.Seq2[int, *Archetype] {
	return func(yield func(int, *Archetype) bool) {
		c.initialize()
		defer c.Reset()

		for c.archIndex < len(c.archetypes) {
			c.currentArchetype = c.archetypes[c.archIndex]
			c.remaining = c.currentArchetype.Len()

			for c.visited < c.remaining {
				c.visited++
				if !yield(c.visited-1, c.currentArchetype) {
					return
				}
			}
			c.visited = 0
			c.archIndex++
		}
	}
}

// Archetypes yields every non-empty matched archetype, for column-at-a-time
// iteration.
func (c *Cursor) Archetypes() iter.Seq[*Archetype] {
	return func(yield func(*Archetype) bool) {
		c.initialize()
		defer c.Reset()

		for _, arch := range c.archetypes {
			if arch.Len() == 0 {
				continue
			}
			c.currentArchetype = arch
			if !yield(arch) {
				return
			}
		}
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.archetypes = c.query.Matches(c.world)
	c.archIndex = 0
	c.visited = 0
	c.remaining = 0
	if len(c.archetypes) > 0 {
		c.currentArchetype = c.archetypes[0]
		c.remaining = c.currentArchetype.Len()
	}
	c.world.Lock()
	c.locked = true
	c.initialized = true
}

// Reset rewinds the cursor and releases its lock on the world, replaying any
// changes deferred meanwhile.
func (c *Cursor) Reset() {
	c.archIndex = 0
	c.visited = 0
	c.remaining = 0
	c.currentArchetype = nil
	c.archetypes = nil
	c.initialized = false
	if c.locked {
		c.locked = false
		c.world.release()
	}
}

// Entity returns the entity at the cursor position.
func (c *Cursor) Entity() Entity {
	return c.currentArchetype.entities[c.visited-1]
}

// Row returns the row of the current entity within Archetype().
func (c *Cursor) Row() int {
	return c.visited - 1
}

func (c *Cursor) Archetype() *Archetype {
	return c.currentArchetype
}

func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.visited
}

// TotalMatched counts the matched entities without moving the cursor.
func (c *Cursor) TotalMatched() int {
	return c.query.Count(c.world)
}
