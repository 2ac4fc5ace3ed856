package ecs

import (
	"errors"

	"github.com/TheBitDrifter/mask"
	"github.com/rotisserie/eris"
)

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
)

var (
	_ QueryNode = &compositeNode{}
	_ QueryNode = &Query{}
)

// compositeNode combines a component mask with child nodes. The mask is built
// once, when the node is created.
type compositeNode struct {
	op       Operation
	children []QueryNode
	mask     mask.Mask
}

func newCompositeNode(op Operation, ids []ComponentID, children []QueryNode) *compositeNode {
	n := &compositeNode{op: op, children: children}
	for _, id := range ids {
		n.mask.Mark(uint32(id))
	}
	return n
}

func (n *compositeNode) Evaluate(archetype *Archetype) bool {
	archeMask := archetype.Mask()

	switch n.op {
	case OpAnd:
		if !archeMask.ContainsAll(n.mask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(archetype) {
				return false
			}
		}
		return true

	case OpOr:
		if archeMask.ContainsAny(n.mask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(archetype) {
				return true
			}
		}
		return false

	case OpNot:
		for _, child := range n.children {
			if child.Evaluate(archetype) {
				return false
			}
		}
		return archeMask.ContainsNone(n.mask)
	}
	return false
}

// Query selects archetypes by component membership and caches the result per
// world. Archetypes are never destroyed, so refreshing the cache only scans the
// archetypes created since the previous call.
type Query struct {
	root  QueryNode
	cache *matchCache
}

// matchCache is the incremental match list of one query root in one world.
// Queries returned by World.Query share it until they are refined.
type matchCache struct {
	world   *World
	scanned int
	matched []*Archetype
}

func newQuery() *Query {
	return &Query{}
}

// And matches archetypes holding every listed component and satisfying every
// child node. The most recently built node becomes the query's root, so the
// outermost call of a nested expression wins.
func (q *Query) And(items ...any) QueryNode {
	return q.node(OpAnd, items)
}

func (q *Query) Or(items ...any) QueryNode {
	return q.node(OpOr, items)
}

// Not matches archetypes holding none of the listed components and satisfying
// no child node.
func (q *Query) Not(items ...any) QueryNode {
	return q.node(OpNot, items)
}

// node replaces the root and detaches q from any shared match list, so
// refining a query from World.Query never changes what other callers see.
func (q *Query) node(op Operation, items []any) QueryNode {
	ids, children := q.processItems(items...)
	node := newCompositeNode(op, ids, children)
	q.root = node
	q.cache = nil
	return node
}

func (q *Query) processItems(items ...any) ([]ComponentID, []QueryNode) {
	ids := make([]ComponentID, 0, len(items))
	children := make([]QueryNode, 0)

	for _, item := range items {
		switch v := item.(type) {
		case ComponentID:
			ids = append(ids, v)
		case []ComponentHandle:
			for _, h := range v {
				ids = append(ids, h.ID())
			}
		case QueryNode:
			children = append(children, v)
		case ComponentHandle:
			ids = append(ids, v.ID())
		}
	}
	return ids, children
}

// Evaluate reports whether archetype matches. A query with no nodes matches
// nothing.
func (q *Query) Evaluate(archetype *Archetype) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(archetype)
}

// Matches returns the archetypes of w matching q, in creation order. Empty
// archetypes are included. The slice must not be modified.
func (q *Query) Matches(w *World) []*Archetype {
	if q.cache == nil || q.cache.world != w {
		q.cache = &matchCache{world: w}
	}
	c := q.cache
	store := w.archetypes
	for ; c.scanned < store.version(); c.scanned++ {
		arch := store.get(ArchetypeID(c.scanned))
		if q.Evaluate(arch) {
			c.matched = append(c.matched, arch)
		}
	}
	return c.matched
}

// ArchetypeIDs returns the ids of every archetype of w matching q.
func (q *Query) ArchetypeIDs(w *World) []ArchetypeID {
	matched := q.Matches(w)
	ids := make([]ArchetypeID, len(matched))
	for i, arch := range matched {
		ids[i] = arch.id
	}
	return ids
}

// Count returns the number of entities of w matching q.
func (q *Query) Count(w *World) int {
	total := 0
	for _, arch := range q.Matches(w) {
		total += arch.Len()
	}
	return total
}

type queryKey struct {
	required mask.Mask
	excluded mask.Mask
}

// Query returns a query matching archetypes that hold every required
// component and none of the excluded ones. Queries of the same shape share one
// match list; refining the returned query with And, Or or Not detaches it.
// Every handle must name a component registered with w.
func (w *World) Query(required []ComponentHandle, excluded []ComponentHandle) (*Query, error) {
	if err := errors.Join(w.checkHandles(required), w.checkHandles(excluded)); err != nil {
		return nil, err
	}
	var key queryKey
	for _, h := range required {
		key.required.Mark(uint32(h.ID()))
	}
	for _, h := range excluded {
		key.excluded.Mark(uint32(h.ID()))
	}
	cached, ok := w.queries[key]
	if !ok {
		cached = &Query{cache: &matchCache{world: w}}
		if len(excluded) > 0 {
			cached.root = newCompositeNode(OpAnd, handleIDs(required), []QueryNode{
				newCompositeNode(OpNot, handleIDs(excluded), nil),
			})
		} else {
			cached.root = newCompositeNode(OpAnd, handleIDs(required), nil)
		}
		w.queries[key] = cached
	}
	return &Query{root: cached.root, cache: cached.cache}, nil
}

// checkHandles verifies that every handle names a component registered with w.
// Typed handles are also checked against the registered Go type, so a
// zero-value ComponentType never aliases component 0.
func (w *World) checkHandles(handles []ComponentHandle) error {
	for _, h := range handles {
		if h == nil {
			return w.misconfigured(eris.Wrap(ErrUnregisteredComponentType, "nil component handle"))
		}
		if typed, ok := h.(interface{ check(*World) error }); ok {
			if err := typed.check(w); err != nil {
				return err
			}
			continue
		}
		if _, err := w.components.info(h.ID()); err != nil {
			return w.misconfigured(err)
		}
	}
	return nil
}

func handleIDs(handles []ComponentHandle) []ComponentID {
	ids := make([]ComponentID, len(handles))
	for i, h := range handles {
		ids[i] = h.ID()
	}
	return ids
}
