package ecs

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/TheBitDrifter/table"
	"github.com/rotisserie/eris"
)

// ComponentInfo is the registry entry for one component type: its layout and
// the type-erased operations archetype columns use to manage it.
type ComponentInfo struct {
	ID    ComponentID
	Name  string
	Type  reflect.Type
	Size  uintptr
	Align uintptr

	ops componentOps
}

// componentRegistry assigns component ids through a table.Schema, so worlds
// built on a shared schema agree on ids.
type componentRegistry struct {
	schema table.Schema
	byID   [MaxComponentTypes]*ComponentInfo
	byType map[reflect.Type]ComponentID
	count  int
}

func newComponentRegistry(schema table.Schema) *componentRegistry {
	return &componentRegistry{
		schema: schema,
		byType: make(map[reflect.Type]ComponentID),
	}
}

// registerComponent is idempotent per concrete type. The bool result reports
// whether a new entry was created.
func registerComponent[T any](r *componentRegistry) (*ComponentInfo, bool, error) {
	typ := reflect.TypeFor[T]()
	if id, ok := r.byType[typ]; ok {
		return r.byID[id], false, nil
	}

	elementType := elementTypeFor[T]()
	r.schema.Register(elementType)
	rowIndex := r.schema.RowIndexFor(elementType)
	if rowIndex >= MaxComponentTypes {
		return nil, false, eris.Wrapf(ErrTooManyComponentTypes, "cannot register %s (limit %d)", typ, MaxComponentTypes)
	}
	id := ComponentID(rowIndex)
	if existing := r.byID[id]; existing != nil {
		return nil, false, eris.Errorf("component id %d already assigned to %s", id, existing.Name)
	}

	info := &ComponentInfo{
		ID:    id,
		Name:  typ.String(),
		Type:  typ,
		Size:  typ.Size(),
		Align: uintptr(typ.Align()),
		ops:   opsFor[T](),
	}
	r.byID[id] = info
	r.byType[typ] = id
	r.count++
	return info, true, nil
}

// elementTypes holds one table.ElementType per Go type, so every schema sees
// the same element identity for a type.
var elementTypes sync.Map

func elementTypeFor[T any]() table.ElementType {
	typ := reflect.TypeFor[T]()
	if et, ok := elementTypes.Load(typ); ok {
		return et.(table.ElementType)
	}
	et, _ := elementTypes.LoadOrStore(typ, table.ElementType(table.FactoryNewElementType[T]()))
	return et.(table.ElementType)
}

func (r *componentRegistry) info(id ComponentID) (*ComponentInfo, error) {
	if id >= MaxComponentTypes || r.byID[id] == nil {
		return nil, eris.Wrapf(ErrUnregisteredComponentType, "component id %d", id)
	}
	return r.byID[id], nil
}

func (r *componentRegistry) idFor(typ reflect.Type) (ComponentID, error) {
	if typ == nil {
		return 0, eris.Wrap(ErrUnregisteredComponentType, "nil component value")
	}
	id, ok := r.byType[typ]
	if !ok {
		return 0, eris.Wrapf(ErrUnregisteredComponentType, "type %s", typ)
	}
	return id, nil
}

func (r *componentRegistry) all() []*ComponentInfo {
	infos := make([]*ComponentInfo, 0, r.count)
	for _, info := range r.byID {
		if info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}

func opsFor[T any]() componentOps {
	return componentOps{
		alloc: func(n int) unsafe.Pointer {
			return unsafe.Pointer(unsafe.SliceData(make([]T, n)))
		},
		copy: func(dst, src unsafe.Pointer, n int) {
			if n == 0 {
				return
			}
			copy(unsafe.Slice((*T)(dst), n), unsafe.Slice((*T)(src), n))
		},
		set: func(dst unsafe.Pointer, v any) {
			*(*T)(dst) = v.(T)
		},
		load: func(src unsafe.Pointer) any {
			return *(*T)(src)
		},
		clear: func(p unsafe.Pointer) {
			var zero T
			*(*T)(p) = zero
		},
		drop: func(p unsafe.Pointer) {
			v := (*T)(p)
			if d, ok := any(v).(Dropper); ok {
				d.Drop()
			}
			var zero T
			*v = zero
		},
	}
}
