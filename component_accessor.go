package ecs

import (
	"unsafe"

	"github.com/rotisserie/eris"
)

// Column returns a's T values as a slice aligned with a.Entities(). Writes
// through the slice update storage; the slice is invalidated by the next
// structural mutation.
func (c ComponentType[T]) Column(a *Archetype) ([]T, error) {
	col, err := a.column(c.id)
	if err != nil {
		return nil, err
	}
	if col.info.Type != c.typ {
		return nil, eris.Wrapf(ErrUnregisteredComponentType, "column %s read as %s", col.info.Name, c)
	}
	if a.Len() == 0 {
		return nil, nil
	}
	return unsafe.Slice((*T)(col.data), a.Len()), nil
}

// MustColumn is Column for archetypes already known to hold T.
func (c ComponentType[T]) MustColumn(a *Archetype) []T {
	values, err := c.Column(a)
	if err != nil {
		panic(err)
	}
	return values
}

// GetFromCursor returns the T of the entity at the cursor position.
func (c ComponentType[T]) GetFromCursor(cursor *Cursor) *T {
	a := cursor.currentArchetype
	return (*T)(a.columns[a.slots[c.id]].at(cursor.visited - 1))
}

// GetFromCursorSafe is GetFromCursor for queries that do not guarantee T.
func (c ComponentType[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.CheckCursor(cursor) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

func (c ComponentType[T]) CheckCursor(cursor *Cursor) bool {
	return cursor.currentArchetype != nil && cursor.currentArchetype.Has(c.id)
}
