package ecs

import (
	"slices"

	"github.com/rotisserie/eris"
)

// prefab is a named template of component values.
type prefab struct {
	name   string
	values []any
}

// RegisterPrefab stores values under name for SpawnPrefab. Every value must be
// of a registered type and no type may repeat. Registering a name again
// replaces the earlier template.
func (w *World) RegisterPrefab(name string, values ...any) error {
	if name == "" {
		return eris.New("prefab name must not be empty")
	}
	if _, err := w.idsFor(values); err != nil {
		return eris.Wrapf(err, "prefab %q", name)
	}
	if _, err := w.prefabs.Register(name, prefab{name: name, values: slices.Clone(values)}); err != nil {
		return eris.Wrapf(err, "prefab %q", name)
	}
	w.logger.Debug().Str("prefab", name).Int("components", len(values)).Msg("prefab registered")
	return nil
}

// SpawnPrefab spawns a new entity with a copy of the prefab's values.
func (w *World) SpawnPrefab(name string) (Entity, error) {
	idx, ok := w.prefabs.GetIndex(name)
	if !ok {
		return Entity{}, eris.Wrapf(ErrUnknownPrefab, "%q", name)
	}
	return w.Spawn(w.prefabs.GetItem(idx).values...)
}

func (w *World) HasPrefab(name string) bool {
	_, ok := w.prefabs.GetIndex(name)
	return ok
}
