package ecs

import "errors"

var (
	// ErrStaleHandle is returned for operations on an entity that was despawned or never existed.
	ErrStaleHandle = errors.New("stale entity handle")

	// ErrComponentNotPresent is returned when an entity or archetype does not hold the requested component.
	ErrComponentNotPresent = errors.New("component not present")

	// ErrUnregisteredComponentType is a configuration error: the component type was never registered with the world.
	ErrUnregisteredComponentType = errors.New("unregistered component type")

	// ErrDuplicateComponent is returned when adding a component type the entity already holds.
	// Use ComponentType.Set to overwrite in place.
	ErrDuplicateComponent = errors.New("component already present")

	// ErrTooManyComponentTypes is returned when a world runs out of component ids.
	ErrTooManyComponentTypes = errors.New("too many component types")

	// ErrWorldLocked is returned for structural mutations while a cursor is iterating.
	ErrWorldLocked = errors.New("world is locked")

	// ErrInvalidConfig is returned by Config.Validate for out-of-range tunables.
	ErrInvalidConfig = errors.New("invalid config")

	ErrUnknownPrefab       = errors.New("unknown prefab")
	ErrUndeclaredComponent = errors.New("component not declared by system")
	ErrDuplicateSystem     = errors.New("duplicate system")
	ErrInvalidSystem       = errors.New("invalid system")
)
