package ecs

import (
	"iter"
	"slices"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
)

// Signature is the canonical form of a component set: a bitmask for lookups and
// subset tests plus the sorted ids for column layout.
type Signature struct {
	mask mask.Mask
	ids  []ComponentID
}

func newSignature(ids ...ComponentID) Signature {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	var m mask.Mask
	for _, id := range sorted {
		m.Mark(uint32(id))
	}
	return Signature{mask: m, ids: sorted}
}

func (s Signature) Has(id ComponentID) bool {
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// IDs returns the sorted component ids of the signature.
func (s Signature) IDs() []ComponentID {
	return slices.Clone(s.ids)
}

func (s Signature) Len() int {
	return len(s.ids)
}

func (s Signature) Mask() mask.Mask {
	return s.mask
}

func (s Signature) with(id ComponentID) Signature {
	return newSignature(append(slices.Clone(s.ids), id)...)
}

func (s Signature) without(id ComponentID) Signature {
	ids := slices.DeleteFunc(slices.Clone(s.ids), func(c ComponentID) bool { return c == id })
	return newSignature(ids...)
}

// column is a fixed-stride untyped buffer holding one component type. The
// backing array is allocated through the component's typed allocator so the
// garbage collector still sees any pointers stored in it.
type column struct {
	info *ComponentInfo
	data unsafe.Pointer
	cap  int
}

func (c *column) at(row int) unsafe.Pointer {
	return unsafe.Add(c.data, uintptr(row)*c.info.Size)
}

func (c *column) reserve(length, need int) {
	if need <= c.cap {
		return
	}
	newCap := max(need, 2*c.cap, 8)
	data := c.info.ops.alloc(newCap)
	c.info.ops.copy(data, c.data, length)
	c.data = data
	c.cap = newCap
}

// Archetype is the columnar table of every entity holding exactly one
// component set. Row i of every column belongs to entities[i].
type Archetype struct {
	id        ArchetypeID
	signature Signature
	entities  []Entity
	columns   []column

	// slots maps a component id to its column index, -1 when absent.
	slots [MaxComponentTypes]int

	// Cached graph edges: the archetype reached by adding or removing one component.
	addEdges    *intmap.Map[ComponentID, ArchetypeID]
	removeEdges *intmap.Map[ComponentID, ArchetypeID]
}

func newArchetype(id ArchetypeID, signature Signature, infos []*ComponentInfo) *Archetype {
	a := &Archetype{
		id:          id,
		signature:   signature,
		columns:     make([]column, len(infos)),
		addEdges:    intmap.New[ComponentID, ArchetypeID](4),
		removeEdges: intmap.New[ComponentID, ArchetypeID](4),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	for i, info := range infos {
		a.columns[i] = column{info: info}
		a.slots[info.ID] = i
	}
	return a
}

func (a *Archetype) ID() ArchetypeID {
	return a.id
}

// Len returns the number of rows.
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Entities returns the row sequence. Row indices are only valid until the next
// structural mutation; the slice must not be modified.
func (a *Archetype) Entities() []Entity {
	return a.entities
}

func (a *Archetype) Signature() Signature {
	return a.signature
}

func (a *Archetype) Mask() mask.Mask {
	return a.signature.mask
}

func (a *Archetype) Has(id ComponentID) bool {
	return id < MaxComponentTypes && a.slots[id] >= 0
}

// ComponentIDs yields the signature's component ids in column order.
func (a *Archetype) ComponentIDs() iter.Seq[ComponentID] {
	return func(yield func(ComponentID) bool) {
		for _, c := range a.columns {
			if !yield(c.info.ID) {
				return
			}
		}
	}
}

func (a *Archetype) column(id ComponentID) (*column, error) {
	if !a.Has(id) {
		return nil, eris.Wrapf(ErrComponentNotPresent, "component %d in archetype %d", id, a.id)
	}
	return &a.columns[a.slots[id]], nil
}

func (a *Archetype) pointer(id ComponentID, row int) (unsafe.Pointer, error) {
	c, err := a.column(id)
	if err != nil {
		return nil, err
	}
	return c.at(row), nil
}

// appendRow reserves a zeroed row for e in every column. Callers fill every
// column before the row becomes observable.
func (a *Archetype) appendRow(e Entity) int {
	row := len(a.entities)
	for i := range a.columns {
		a.columns[i].reserve(row, row+1)
	}
	a.entities = append(a.entities, e)
	return row
}

// insertRow appends e with exactly one writer per column, indexed like the
// columns. Partial rows are rejected before anything is written.
func (a *Archetype) insertRow(e Entity, writers []func(dst unsafe.Pointer)) (int, error) {
	if len(writers) != len(a.columns) {
		return 0, eris.Errorf("archetype %d needs %d values, got %d", a.id, len(a.columns), len(writers))
	}
	for i, write := range writers {
		if write == nil {
			return 0, eris.Errorf("archetype %d missing value for %s", a.id, a.columns[i].info.Name)
		}
	}
	row := a.appendRow(e)
	for i, write := range writers {
		write(a.columns[i].at(row))
	}
	return row, nil
}

// removeRow swap-removes row. It returns the entity moved into the vacated
// slot, or false when row was the last one.
func (a *Archetype) removeRow(row int) (Entity, bool) {
	last := len(a.entities) - 1
	for i := range a.columns {
		c := &a.columns[i]
		if row != last {
			c.info.ops.copy(c.at(row), c.at(last), 1)
		}
		c.info.ops.clear(c.at(last))
	}
	moved := a.entities[last]
	a.entities[row] = moved
	a.entities[last] = Entity{}
	a.entities = a.entities[:last]
	if row == last {
		return Entity{}, false
	}
	return moved, true
}

// dropRow runs the destructor of every value in row without removing it.
func (a *Archetype) dropRow(row int) {
	for i := range a.columns {
		c := &a.columns[i]
		c.info.ops.drop(c.at(row))
	}
}

// moveRow appends row's entity to dst, copying every column both archetypes
// share, then swap-removes it here. Columns only dst has are left zeroed for
// the caller to fill.
func (a *Archetype) moveRow(row int, dst *Archetype) (newRow int, swapped Entity, ok bool) {
	newRow = dst.appendRow(a.entities[row])
	for i := range dst.columns {
		dc := &dst.columns[i]
		if si := a.slots[dc.info.ID]; si >= 0 {
			dc.info.ops.copy(dc.at(newRow), a.columns[si].at(row), 1)
		}
	}
	swapped, ok = a.removeRow(row)
	return newRow, swapped, ok
}
