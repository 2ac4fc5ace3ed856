package ecs

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Entity is an opaque handle to one simulated object. Identity is the pair of
// index and generation: an index is recycled after despawn, the generation is
// not, so an old handle never resolves to the new occupant.
type Entity struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether e is the zero handle, which is never alive.
func (e Entity) IsZero() bool {
	return e == Entity{}
}

func (e Entity) String() string {
	return fmt.Sprintf("entity(%d:%d)", e.Index, e.Generation)
}

type entitySlot struct {
	generation uint32
	alive      bool
}

// entityAllocator issues entity handles and tracks liveness. It never touches
// component storage; the World keeps both in step.
type entityAllocator struct {
	slots []entitySlot
	free  freeIndices
	live  int
}

func newEntityAllocator(capacity int) *entityAllocator {
	return &entityAllocator{
		slots: make([]entitySlot, 0, capacity),
	}
}

// create returns a handle that is not currently alive, reusing the lowest free
// index first.
func (a *entityAllocator) create() Entity {
	a.live++
	if a.free.Len() > 0 {
		index := heap.Pop(&a.free).(uint32)
		slot := &a.slots[index]
		slot.alive = true
		return Entity{Index: index, Generation: slot.generation}
	}
	index := uint32(len(a.slots))
	a.slots = append(a.slots, entitySlot{generation: 1, alive: true})
	return Entity{Index: index, Generation: 1}
}

// destroy frees e's index and bumps its generation. An index whose generation
// is exhausted is retired instead of recycled.
func (a *entityAllocator) destroy(e Entity) error {
	if !a.alive(e) {
		return eris.Wrapf(ErrStaleHandle, "cannot destroy %v", e)
	}
	slot := &a.slots[e.Index]
	slot.alive = false
	a.live--
	if slot.generation == math.MaxUint32 {
		return nil
	}
	slot.generation++
	heap.Push(&a.free, e.Index)
	return nil
}

func (a *entityAllocator) alive(e Entity) bool {
	if int(e.Index) >= len(a.slots) {
		return false
	}
	slot := a.slots[e.Index]
	return slot.alive && slot.generation == e.Generation
}

// freeIndices is a min-heap of recycled entity indices.
type freeIndices []uint32

func (f freeIndices) Len() int           { return len(f) }
func (f freeIndices) Less(i, j int) bool { return f[i] < f[j] }
func (f freeIndices) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func (f *freeIndices) Push(x any) {
	*f = append(*f, x.(uint32))
}

func (f *freeIndices) Pop() any {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}
