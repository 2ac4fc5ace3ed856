package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

var _ ComponentHandle = ComponentType[struct{}]{}

func (c ComponentType[T]) ID() ComponentID {
	return c.id
}

func (c ComponentType[T]) String() string {
	if c.typ == nil {
		return "<unregistered>"
	}
	return c.typ.String()
}

// check verifies c names the same type in w that it was registered as, so a
// handle from another world can never reinterpret a column.
func (c ComponentType[T]) check(w *World) error {
	if c.typ == nil {
		return w.misconfigured(eris.Wrapf(ErrUnregisteredComponentType,
			"zero-value handle for %s", reflect.TypeFor[T]()))
	}
	info, err := w.components.info(c.id)
	if err != nil {
		return w.misconfigured(err)
	}
	if info.Type != c.typ {
		return w.misconfigured(eris.Wrapf(ErrUnregisteredComponentType,
			"handle for %s resolves to %s in this world", c, info.Name))
	}
	return nil
}

// Get returns a copy of e's T.
func (c ComponentType[T]) Get(w *World, e Entity) (T, error) {
	var zero T
	ptr, err := c.GetMut(w, e)
	if err != nil {
		return zero, err
	}
	return *ptr, nil
}

// GetMut returns a pointer to e's T inside its archetype column. The pointer
// is invalidated by the next structural mutation of the world.
func (c ComponentType[T]) GetMut(w *World, e Entity) (*T, error) {
	if err := c.check(w); err != nil {
		return nil, err
	}
	ptr, err := w.pointer(e, c.id)
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

func (c ComponentType[T]) Has(w *World, e Entity) bool {
	return c.check(w) == nil && w.HasComponent(e, c.id)
}

// Add moves e to the archetype that also holds T and stores v there. Adding a
// type e already holds fails with ErrDuplicateComponent; use Set to replace.
func (c ComponentType[T]) Add(w *World, e Entity, v T) error {
	if err := c.check(w); err != nil {
		return err
	}
	return w.addComponent(e, c.id, func(dst unsafe.Pointer) { *(*T)(dst) = v })
}

// Set overwrites e's T in place, dropping the old value, or adds it when
// absent.
func (c ComponentType[T]) Set(w *World, e Entity, v T) error {
	if err := c.check(w); err != nil {
		return err
	}
	return w.setComponent(e, c.id, func(dst unsafe.Pointer) { *(*T)(dst) = v })
}

// Remove detaches T from e and hands the value back. The returned value is
// not dropped.
func (c ComponentType[T]) Remove(w *World, e Entity) (T, error) {
	var removed T
	if err := c.check(w); err != nil {
		return removed, err
	}
	err := w.removeComponent(e, c.id, func(src unsafe.Pointer) { removed = *(*T)(src) })
	if err != nil {
		var zero T
		return zero, err
	}
	return removed, nil
}

// EnqueueAdd adds v now, or once the world unlocks when a cursor holds it.
func (c ComponentType[T]) EnqueueAdd(w *World, e Entity, v T) error {
	if err := c.check(w); err != nil {
		return err
	}
	if !w.Locked() {
		return c.Add(w, e, v)
	}
	w.opQueue.enqueueComponentOp(opAddComponent, e, c.id, func(dst unsafe.Pointer) { *(*T)(dst) = v })
	return nil
}

func (c ComponentType[T]) EnqueueSet(w *World, e Entity, v T) error {
	if err := c.check(w); err != nil {
		return err
	}
	if !w.Locked() {
		return c.Set(w, e, v)
	}
	w.opQueue.enqueueComponentOp(opSetComponent, e, c.id, func(dst unsafe.Pointer) { *(*T)(dst) = v })
	return nil
}

// EnqueueRemove removes T from e now, or once the world unlocks. A deferred
// removal drops the value.
func (c ComponentType[T]) EnqueueRemove(w *World, e Entity) error {
	if err := c.check(w); err != nil {
		return err
	}
	if !w.Locked() {
		return w.removeComponent(e, c.id, nil)
	}
	w.opQueue.enqueueComponentOp(opRemoveComponent, e, c.id, nil)
	return nil
}
