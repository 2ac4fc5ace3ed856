package ecs

import "errors"

// Each calls fn for every entity holding A. fn may write through the pointer;
// structural changes made inside fn must go through the Enqueue variants and
// are applied when Each returns. The world is unlocked even if fn panics.
func Each[A any](w *World, a ComponentType[A], fn func(Entity, *A)) (err error) {
	q, err := w.Query([]ComponentHandle{a}, nil)
	if err != nil {
		return err
	}
	w.Lock()
	defer func() { err = errors.Join(err, w.Unlock()) }()
	for _, arch := range q.Matches(w) {
		as := a.MustColumn(arch)
		for row, e := range arch.entities {
			fn(e, &as[row])
		}
	}
	return nil
}

// Each2 calls fn for every entity holding both A and B.
func Each2[A, B any](w *World, a ComponentType[A], b ComponentType[B], fn func(Entity, *A, *B)) (err error) {
	q, err := w.Query([]ComponentHandle{a, b}, nil)
	if err != nil {
		return err
	}
	w.Lock()
	defer func() { err = errors.Join(err, w.Unlock()) }()
	for _, arch := range q.Matches(w) {
		as, bs := a.MustColumn(arch), b.MustColumn(arch)
		for row, e := range arch.entities {
			fn(e, &as[row], &bs[row])
		}
	}
	return nil
}
