package ecs

import (
	"reflect"
	"unsafe"
)

// MaxComponentTypes bounds the component ids a single World can hand out.
// Signatures are bitmasks, so ids must fit in one mask.
const MaxComponentTypes = 64

// ComponentID is the stable per-World identifier of a registered component type.
type ComponentID uint32

// ArchetypeID identifies an archetype table inside one World. Archetype 0 is the
// empty signature.
type ArchetypeID uint32

// ComponentHandle is anything that names a registered component, most commonly a
// ComponentType.
type ComponentHandle interface {
	ID() ComponentID
}

// Dropper is implemented by component types that need to release resources when
// their value is destroyed (despawn, overwrite, or a discarded removal).
// Values moved between archetypes or returned to the caller are not dropped.
type Dropper interface {
	Drop()
}

type QueryNode interface {
	Evaluate(archetype *Archetype) bool
}

type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
	Len() int
}

// Option configures a World at construction.
type Option func(*World)

// ComponentType is the typed handle of a registered component. It carries the
// component id so hot-path access never goes back through reflection.
type ComponentType[T any] struct {
	id  ComponentID
	typ reflect.Type
}

// Cursor walks the rows of every archetype matched by a query, archetype by
// archetype. The world is locked while a cursor is active.
// Fields are shared with archetype iteration; do not copy a Cursor.
type Cursor struct {
	query *Query
	world *World

	// Current iteration state
	currentArchetype *Archetype
	archIndex        int
	visited          int
	remaining        int

	// Initialization state
	initialized bool
	locked      bool
	archetypes  []*Archetype
}

type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

// componentOps are the type-erased operations a column needs to manage its
// untyped buffer. They are built once per type at registration.
type componentOps struct {
	alloc func(n int) unsafe.Pointer
	copy  func(dst, src unsafe.Pointer, n int)
	set   func(dst unsafe.Pointer, v any)
	load  func(src unsafe.Pointer) any
	clear func(p unsafe.Pointer)
	drop  func(p unsafe.Pointer)
}
