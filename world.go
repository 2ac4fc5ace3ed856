package ecs

import (
	"errors"
	"reflect"
	"unsafe"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/TheBitDrifter/table"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type entityLocation struct {
	archetype ArchetypeID
	row       int
}

// World owns the entity allocator, the component registry and every archetype
// table. It is the only writer of entity locations, and every structural
// mutation either completes or leaves the world unchanged.
//
// A World is not safe for concurrent use.
type World struct {
	config  Config
	logger  zerolog.Logger
	metrics statsd.ClientInterface
	schema  table.Schema

	entities   *entityAllocator
	components *componentRegistry
	archetypes *archetypes
	locations  []entityLocation

	queries map[queryKey]*Query
	prefabs Cache[prefab]

	locks    int
	opQueue  opQueue
	flushErr error
}

func newWorld(opts ...Option) *World {
	w := &World{
		config:  DefaultConfig(),
		logger:  zerolog.Nop(),
		metrics: &statsd.NoOpClient{},
		queries: make(map[queryKey]*Query),
		opQueue: newOpQueue(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.config.Validate(); err != nil {
		if w.config.PanicOnMisconfiguration {
			panic(err)
		}
		w.logger.Warn().Err(err).Msg("invalid world config, falling back to defaults for out-of-range fields")
		w.config = w.config.sanitized()
	}
	if w.schema == nil {
		w.schema = table.Factory.NewSchema()
	}
	w.entities = newEntityAllocator(w.config.EntityCapacity)
	w.locations = make([]entityLocation, 0, w.config.EntityCapacity)
	w.components = newComponentRegistry(w.schema)
	w.archetypes = newArchetypes(w.components, &w.logger)
	w.prefabs = FactoryNewCache[prefab](w.config.PrefabCapacity)
	return w
}

// NewWorld creates an empty world holding only the empty archetype. Config
// fields out of range are replaced by their defaults, or panic when
// PanicOnMisconfiguration is set.
func NewWorld(opts ...Option) *World {
	return newWorld(opts...)
}

func (w *World) Config() Config {
	return w.config
}

func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// InjectLogger swaps the world's logger.
func (w *World) InjectLogger(logger zerolog.Logger) {
	w.logger = logger
}

// RegisterComponent registers T with w and returns its typed handle.
// Registering the same type again returns the same handle.
func RegisterComponent[T any](w *World) (ComponentType[T], error) {
	info, created, err := registerComponent[T](w.components)
	if err != nil {
		return ComponentType[T]{}, err
	}
	if created {
		w.logger.Debug().
			Uint32("component_id", uint32(info.ID)).
			Str("component_name", info.Name).
			Uint64("size", uint64(info.Size)).
			Msg("component registered")
	}
	return ComponentType[T]{id: info.ID, typ: info.Type}, nil
}

// ComponentInfo returns the registry entry for id.
func (w *World) ComponentInfo(id ComponentID) (*ComponentInfo, error) {
	info, err := w.components.info(id)
	if err != nil {
		return nil, w.misconfigured(err)
	}
	return info, nil
}

// Components lists every registered component, ordered by id.
func (w *World) Components() []*ComponentInfo {
	return w.components.all()
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	return w.entities.alive(e)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.entities.live
}

func (w *World) ArchetypeCount() int {
	return w.archetypes.version()
}

func (w *World) Archetype(id ArchetypeID) (*Archetype, bool) {
	if int(id) >= w.archetypes.version() {
		return nil, false
	}
	return w.archetypes.get(id), true
}

// Location returns the archetype and row currently holding e. Rows move on any
// structural mutation, so the result must not be cached across one.
func (w *World) Location(e Entity) (ArchetypeID, int, error) {
	loc, err := w.locate(e)
	if err != nil {
		return 0, 0, err
	}
	return loc.archetype, loc.row, nil
}

// ComponentIDs returns the sorted component ids e currently holds.
func (w *World) ComponentIDs(e Entity) ([]ComponentID, error) {
	loc, err := w.locate(e)
	if err != nil {
		return nil, err
	}
	return w.archetypes.get(loc.archetype).signature.IDs(), nil
}

// Spawn creates an entity holding one component per value. Every value's type
// must be registered and appear at most once.
func (w *World) Spawn(values ...any) (Entity, error) {
	if err := w.checkUnlocked("spawn"); err != nil {
		return Entity{}, err
	}
	ids, err := w.idsFor(values)
	if err != nil {
		return Entity{}, err
	}

	archetypeID, err := w.archetypes.tableFor(newSignature(ids...))
	if err != nil {
		return Entity{}, err
	}
	arch := w.archetypes.get(archetypeID)
	writers := make([]func(unsafe.Pointer), len(values))
	for i, v := range values {
		set := arch.columns[arch.slots[ids[i]]].info.ops.set
		writers[arch.slots[ids[i]]] = func(dst unsafe.Pointer) { set(dst, v) }
	}

	e := w.entities.create()
	row, err := arch.insertRow(e, writers)
	if err != nil {
		panic(eris.Wrap(err, "spawn produced a partial row"))
	}
	w.setLocation(e, archetypeID, row)
	w.logger.Trace().Stringer("entity", e).Uint32("archetype_id", uint32(archetypeID)).Msg("spawned")
	w.debugCheck()
	return e, nil
}

// idsFor resolves the component id of every value, rejecting unregistered
// types and repeated ones.
func (w *World) idsFor(values []any) ([]ComponentID, error) {
	ids := make([]ComponentID, len(values))
	var seen [MaxComponentTypes]bool
	for i, v := range values {
		id, err := w.components.idFor(reflect.TypeOf(v))
		if err != nil {
			return nil, w.misconfigured(err)
		}
		if seen[id] {
			return nil, eris.Wrapf(ErrDuplicateComponent, "two %s values", reflect.TypeOf(v))
		}
		seen[id] = true
		ids[i] = id
	}
	return ids, nil
}

// Despawn removes e and invalidates every handle to it.
func (w *World) Despawn(e Entity) error {
	if err := w.checkUnlocked("despawn"); err != nil {
		return err
	}
	loc, err := w.locate(e)
	if err != nil {
		return err
	}
	arch := w.archetypes.get(loc.archetype)
	arch.dropRow(loc.row)
	if moved, ok := arch.removeRow(loc.row); ok {
		w.locations[moved.Index].row = loc.row
	}
	if err := w.entities.destroy(e); err != nil {
		panic(eris.Wrap(err, "location map out of sync with allocator"))
	}
	w.locations[e.Index] = entityLocation{}
	w.logger.Trace().Stringer("entity", e).Msg("despawned")
	w.debugCheck()
	return nil
}

// DespawnMatching despawns every entity matched by q and returns how many.
func (w *World) DespawnMatching(q *Query) (int, error) {
	if err := w.checkUnlocked("despawn matching"); err != nil {
		return 0, err
	}
	var doomed []Entity
	for _, arch := range q.Matches(w) {
		doomed = append(doomed, arch.entities...)
	}
	for _, e := range doomed {
		if err := w.Despawn(e); err != nil {
			return 0, err
		}
	}
	return len(doomed), nil
}

// AddComponentValue adds v, whose type must be registered, to e.
func (w *World) AddComponentValue(e Entity, v any) error {
	id, err := w.components.idFor(reflect.TypeOf(v))
	if err != nil {
		return w.misconfigured(err)
	}
	set := w.components.byID[id].ops.set
	return w.addComponent(e, id, func(dst unsafe.Pointer) { set(dst, v) })
}

// RemoveComponentByID removes component id from e, running its destructor.
func (w *World) RemoveComponentByID(e Entity, id ComponentID) error {
	return w.removeComponent(e, id, nil)
}

// ComponentValue returns a copy of e's component id as an interface value.
func (w *World) ComponentValue(e Entity, id ComponentID) (any, error) {
	info, err := w.components.info(id)
	if err != nil {
		return nil, w.misconfigured(err)
	}
	ptr, err := w.pointer(e, id)
	if err != nil {
		return nil, err
	}
	return info.ops.load(ptr), nil
}

func (w *World) HasComponent(e Entity, id ComponentID) bool {
	loc, err := w.locate(e)
	if err != nil {
		return false
	}
	return w.archetypes.get(loc.archetype).Has(id)
}

func (w *World) addComponent(e Entity, id ComponentID, write func(dst unsafe.Pointer)) error {
	if err := w.checkUnlocked("add component"); err != nil {
		return err
	}
	loc, err := w.locate(e)
	if err != nil {
		return err
	}
	info, err := w.components.info(id)
	if err != nil {
		return w.misconfigured(err)
	}
	if w.archetypes.get(loc.archetype).Has(id) {
		return eris.Wrapf(ErrDuplicateComponent, "%v already has %s", e, info.Name)
	}
	to, err := w.archetypes.transition(loc.archetype, id, true)
	if err != nil {
		return err
	}
	dst := w.move(e, loc, to)
	write(dst.columns[dst.slots[id]].at(w.locations[e.Index].row))
	w.logger.Trace().Stringer("entity", e).Str("component", info.Name).Msg("component added")
	w.debugCheck()
	return nil
}

// removeComponent moves e to the archetype without id. read receives the
// removed value before it leaves storage; with a nil read the value is dropped.
func (w *World) removeComponent(e Entity, id ComponentID, read func(src unsafe.Pointer)) error {
	if err := w.checkUnlocked("remove component"); err != nil {
		return err
	}
	loc, err := w.locate(e)
	if err != nil {
		return err
	}
	info, err := w.components.info(id)
	if err != nil {
		return w.misconfigured(err)
	}
	src := w.archetypes.get(loc.archetype)
	if !src.Has(id) {
		return eris.Wrapf(ErrComponentNotPresent, "%v has no %s", e, info.Name)
	}
	to, err := w.archetypes.transition(loc.archetype, id, false)
	if err != nil {
		return err
	}
	ptr := src.columns[src.slots[id]].at(loc.row)
	if read != nil {
		read(ptr)
	} else {
		info.ops.drop(ptr)
	}
	w.move(e, loc, to)
	w.logger.Trace().Stringer("entity", e).Str("component", info.Name).Msg("component removed")
	w.debugCheck()
	return nil
}

// setComponent overwrites id in place when e holds it, otherwise adds it.
func (w *World) setComponent(e Entity, id ComponentID, write func(dst unsafe.Pointer)) error {
	loc, err := w.locate(e)
	if err != nil {
		return err
	}
	arch := w.archetypes.get(loc.archetype)
	if !arch.Has(id) {
		return w.addComponent(e, id, write)
	}
	c := &arch.columns[arch.slots[id]]
	c.info.ops.drop(c.at(loc.row))
	write(c.at(loc.row))
	return nil
}

// move transfers e's row from its current archetype to `to` and fixes the
// location of e and of the entity swapped into its old row.
func (w *World) move(e Entity, loc entityLocation, to ArchetypeID) *Archetype {
	src := w.archetypes.get(loc.archetype)
	dst := w.archetypes.get(to)
	newRow, swapped, ok := src.moveRow(loc.row, dst)
	if ok {
		w.locations[swapped.Index].row = loc.row
	}
	w.locations[e.Index] = entityLocation{archetype: to, row: newRow}
	return dst
}

func (w *World) pointer(e Entity, id ComponentID) (unsafe.Pointer, error) {
	loc, err := w.locate(e)
	if err != nil {
		return nil, err
	}
	ptr, err := w.archetypes.get(loc.archetype).pointer(id, loc.row)
	if err != nil {
		return nil, eris.Wrapf(err, "%v", e)
	}
	return ptr, nil
}

func (w *World) locate(e Entity) (entityLocation, error) {
	if !w.entities.alive(e) {
		return entityLocation{}, eris.Wrapf(ErrStaleHandle, "%v", e)
	}
	return w.locations[e.Index], nil
}

func (w *World) setLocation(e Entity, archetype ArchetypeID, row int) {
	for int(e.Index) >= len(w.locations) {
		w.locations = append(w.locations, entityLocation{})
	}
	w.locations[e.Index] = entityLocation{archetype: archetype, row: row}
}

// misconfigured reports a configuration error, panicking when the world is
// configured to fail loudly.
func (w *World) misconfigured(err error) error {
	if errors.Is(err, ErrUnregisteredComponentType) {
		w.logger.Error().Err(err).Msg("unregistered component type")
		if w.config.PanicOnMisconfiguration {
			panic(err)
		}
	}
	return err
}

func (w *World) debugCheck() {
	if !w.config.DebugChecks {
		return
	}
	if err := w.Validate(); err != nil {
		panic(err)
	}
}

// Validate checks storage consistency: column and row lengths agree, each
// row's entity is alive and located at that row, and every live entity is
// stored exactly once. A non-nil result means a bug in the world itself.
func (w *World) Validate() error {
	rows := 0
	for _, arch := range w.archetypes.asSlice {
		for i := range arch.columns {
			if arch.columns[i].cap < len(arch.entities) {
				return eris.Errorf("archetype %d column %s shorter than its rows", arch.id, arch.columns[i].info.Name)
			}
		}
		for row, e := range arch.entities {
			if !w.entities.alive(e) {
				return eris.Errorf("archetype %d row %d holds dead %v", arch.id, row, e)
			}
			if loc := w.locations[e.Index]; loc.archetype != arch.id || loc.row != row {
				return eris.Errorf("%v stored at archetype %d row %d but located at archetype %d row %d",
					e, arch.id, row, loc.archetype, loc.row)
			}
		}
		rows += len(arch.entities)
	}
	if rows != w.entities.live {
		return eris.Errorf("%d rows stored for %d live entities", rows, w.entities.live)
	}
	return nil
}
