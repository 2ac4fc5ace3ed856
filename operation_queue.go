package ecs

import (
	"errors"
	"unsafe"

	"github.com/rotisserie/eris"
)

type operation struct {
	typ       operationType
	entity    Entity
	values    []any
	component ComponentID
	write     func(dst unsafe.Pointer)
}

type operationType int

const (
	opNone operationType = iota
	opCreate
	opDestroy
	opAddComponent
	opSetComponent
	opRemoveComponent
)

type opKey struct {
	entity    Entity
	component ComponentID
}

// opQueue holds structural changes requested while the world is locked. They
// are replayed creates first, then component changes, then destroys.
type opQueue struct {
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[Entity]struct{}
	pendingMods    map[opKey]int
}

func newOpQueue() opQueue {
	return opQueue{
		pendingDestroy: make(map[Entity]struct{}),
		pendingMods:    make(map[opKey]int),
	}
}

func (q *opQueue) len() int {
	return len(q.createOps) + len(q.componentOps) + len(q.destroyOps)
}

func (q *opQueue) enqueueCreate(values []any) {
	q.createOps = append(q.createOps, operation{typ: opCreate, values: values})
}

func (q *opQueue) enqueueDestroy(e Entity) {
	if _, exists := q.pendingDestroy[e]; exists {
		return
	}
	q.pendingDestroy[e] = struct{}{}
	for key, idx := range q.pendingMods {
		if key.entity == e {
			q.componentOps[idx].typ = opNone
			delete(q.pendingMods, key)
		}
	}
	q.destroyOps = append(q.destroyOps, operation{typ: opDestroy, entity: e})
}

// enqueueComponentOp records a change to one component of e. A later change to
// the same component replaces the earlier one; changes to an entity pending
// destroy are discarded.
func (q *opQueue) enqueueComponentOp(typ operationType, e Entity, id ComponentID, write func(unsafe.Pointer)) {
	if _, isDestroyed := q.pendingDestroy[e]; isDestroyed {
		return
	}
	key := opKey{entity: e, component: id}
	op := operation{typ: typ, entity: e, component: id, write: write}
	if existingIdx, exists := q.pendingMods[key]; exists {
		q.componentOps[existingIdx] = op
		return
	}
	q.pendingMods[key] = len(q.componentOps)
	q.componentOps = append(q.componentOps, op)
}

func (q *opQueue) reset() {
	clear(q.createOps)
	clear(q.componentOps)
	clear(q.destroyOps)
	q.createOps = q.createOps[:0]
	q.componentOps = q.componentOps[:0]
	q.destroyOps = q.destroyOps[:0]
	clear(q.pendingDestroy)
	clear(q.pendingMods)
}

// processOperationQueue replays every deferred change. A failing change does
// not stop the rest; all failures are returned together.
func (w *World) processOperationQueue() error {
	if w.opQueue.len() == 0 {
		return nil
	}
	q := w.opQueue
	w.opQueue = newOpQueue()
	defer func() {
		q.reset()
	}()

	var errs []error
	fail := func(err error, msg string) {
		w.logger.Warn().Err(err).Msg(msg)
		errs = append(errs, eris.Wrap(err, msg))
	}

	for _, op := range q.createOps {
		if _, err := w.Spawn(op.values...); err != nil {
			fail(err, "failed to process queued entity creation")
		}
	}

	for _, op := range q.componentOps {
		var err error
		switch op.typ {
		case opAddComponent:
			err = w.addComponent(op.entity, op.component, op.write)
		case opSetComponent:
			err = w.setComponent(op.entity, op.component, op.write)
		case opRemoveComponent:
			err = w.removeComponent(op.entity, op.component, nil)
		default:
			continue
		}
		if err != nil {
			fail(err, "failed to process queued component change")
		}
	}

	for _, op := range q.destroyOps {
		if err := w.Despawn(op.entity); err != nil {
			fail(err, "failed to process queued entity destruction")
		}
	}
	return errors.Join(errs...)
}

// EnqueueSpawn spawns now, or once the world unlocks. The values are
// validated immediately either way.
func (w *World) EnqueueSpawn(values ...any) error {
	if !w.Locked() {
		_, err := w.Spawn(values...)
		return err
	}
	if _, err := w.idsFor(values); err != nil {
		return err
	}
	w.opQueue.enqueueCreate(values)
	return nil
}

// EnqueueDespawn despawns now, or once the world unlocks. Queued component
// changes for e are discarded.
func (w *World) EnqueueDespawn(e Entity) error {
	if !w.Locked() {
		return w.Despawn(e)
	}
	if !w.Alive(e) {
		return eris.Wrapf(ErrStaleHandle, "%v", e)
	}
	w.opQueue.enqueueDestroy(e)
	return nil
}

// Lock forbids structural mutation until the matching Unlock.
func (w *World) Lock() {
	w.locks++
}

// Unlock releases one lock. Releasing the last lock replays deferred changes
// and returns their combined failure.
func (w *World) Unlock() error {
	if w.locks == 0 {
		return nil
	}
	w.locks--
	if w.locks > 0 {
		return nil
	}
	return w.processOperationQueue()
}

func (w *World) Locked() bool {
	return w.locks > 0
}

// Flush replays deferred changes and returns every failure not yet reported,
// including those from cursors that unlocked the world.
func (w *World) Flush() error {
	if w.Locked() {
		return eris.Wrap(ErrWorldLocked, "cannot flush")
	}
	err := errors.Join(w.flushErr, w.processOperationQueue())
	w.flushErr = nil
	return err
}

// release is Unlock for callers that cannot return an error. Failures are
// kept for the next Flush.
func (w *World) release() {
	if err := w.Unlock(); err != nil {
		w.flushErr = errors.Join(w.flushErr, err)
	}
}

func (w *World) checkUnlocked(action string) error {
	if w.Locked() {
		return eris.Wrapf(ErrWorldLocked, "cannot %s", action)
	}
	return nil
}
