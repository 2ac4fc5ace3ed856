package ecs

import (
	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

type ArchetypeStats struct {
	ID         ArchetypeID   `json:"id"`
	Components []ComponentID `json:"components"`
	Rows       int           `json:"rows"`
}

// Stats is a point-in-time summary of a world's storage.
type Stats struct {
	Entities   int              `json:"entities"`
	Components int              `json:"components"`
	Archetypes []ArchetypeStats `json:"archetypes"`
	Prefabs    int              `json:"prefabs"`
	Pending    int              `json:"pending_operations"`
}

func (w *World) Stats() Stats {
	stats := Stats{
		Entities:   w.Len(),
		Components: w.components.count,
		Archetypes: make([]ArchetypeStats, 0, w.ArchetypeCount()),
		Prefabs:    w.prefabs.Len(),
		Pending:    w.opQueue.len(),
	}
	for _, arch := range w.archetypes.asSlice {
		stats.Archetypes = append(stats.Archetypes, ArchetypeStats{
			ID:         arch.id,
			Components: iter_util.Collect(arch.ComponentIDs()),
			Rows:       arch.Len(),
		})
	}
	return stats
}

func (s Stats) JSON() ([]byte, error) {
	bz, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal world stats")
	}
	return bz, nil
}
