package ecs

import (
	"github.com/TheBitDrifter/mask"
	"github.com/rs/zerolog"
)

const emptyArchetypeID ArchetypeID = 0

// archetypes maps signatures to archetype tables and caches the add/remove
// transitions between them. Tables are never deallocated, so an ArchetypeID
// stays valid for the life of the world.
type archetypes struct {
	asSlice          []*Archetype
	idsGroupedByMask map[mask.Mask]ArchetypeID
	components       *componentRegistry
	logger           *zerolog.Logger
}

func newArchetypes(components *componentRegistry, logger *zerolog.Logger) *archetypes {
	store := &archetypes{
		idsGroupedByMask: make(map[mask.Mask]ArchetypeID),
		components:       components,
		logger:           logger,
	}
	store.create(newSignature(), nil)
	return store
}

func (s *archetypes) get(id ArchetypeID) *Archetype {
	return s.asSlice[id]
}

// version grows by one for every archetype created. Query caches use it to
// scan only the archetypes they have not seen.
func (s *archetypes) version() int {
	return len(s.asSlice)
}

// tableFor returns the archetype for signature, creating it on first request.
func (s *archetypes) tableFor(signature Signature) (ArchetypeID, error) {
	if id, found := s.idsGroupedByMask[signature.mask]; found {
		return id, nil
	}
	infos := make([]*ComponentInfo, len(signature.ids))
	for i, componentID := range signature.ids {
		info, err := s.components.info(componentID)
		if err != nil {
			return 0, err
		}
		infos[i] = info
	}
	return s.create(signature, infos).id, nil
}

func (s *archetypes) create(signature Signature, infos []*ComponentInfo) *Archetype {
	id := ArchetypeID(len(s.asSlice))
	created := newArchetype(id, signature, infos)
	s.asSlice = append(s.asSlice, created)
	s.idsGroupedByMask[signature.mask] = id
	s.logger.Debug().
		Uint32("archetype_id", uint32(id)).
		Int("components", signature.Len()).
		Msg("archetype created")
	return created
}

// transition returns the archetype reached from `from` by adding or removing
// exactly one component. Both directions of the edge are cached.
func (s *archetypes) transition(from ArchetypeID, componentID ComponentID, add bool) (ArchetypeID, error) {
	origin := s.asSlice[from]
	edges := origin.removeEdges
	if add {
		edges = origin.addEdges
	}
	if to, found := edges.Get(componentID); found {
		return to, nil
	}

	signature := origin.signature.without(componentID)
	if add {
		signature = origin.signature.with(componentID)
	}
	to, err := s.tableFor(signature)
	if err != nil {
		return 0, err
	}

	dest := s.asSlice[to]
	if add {
		origin.addEdges.Put(componentID, to)
		dest.removeEdges.Put(componentID, from)
	} else {
		origin.removeEdges.Put(componentID, to)
		dest.addEdges.Put(componentID, from)
	}
	return to, nil
}
