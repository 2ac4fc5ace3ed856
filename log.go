package ecs

import (
	"github.com/rs/zerolog"
)

func loadComponentIntoArrayLogger(info *ComponentInfo, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(info.ID))
	dictLogger = dictLogger.Str("component_name", info.Name)
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, infos []*ComponentInfo) *zerolog.Event {
	zeroLoggerEvent.Int("total_components", len(infos))
	arrayLogger := zerolog.Arr()
	for _, info := range infos {
		arrayLogger = loadComponentIntoArrayLogger(info, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

// LogComponents logs every component registered with w.
func LogComponents(logger *zerolog.Logger, w *World, level zerolog.Level) {
	loadComponentsToEvent(logger.WithLevel(level), w.Components()).Send()
}

// LogArchetypes logs the signature and row count of every archetype of w.
func LogArchetypes(logger *zerolog.Logger, w *World, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Int("total_archetypes", w.ArchetypeCount())
	arrayLogger := zerolog.Arr()
	for _, arch := range w.archetypes.asSlice {
		names := zerolog.Arr()
		for i := range arch.columns {
			names = names.Str(arch.columns[i].info.Name)
		}
		arrayLogger = arrayLogger.Dict(zerolog.Dict().
			Int("archetype_id", int(arch.id)).
			Int("rows", arch.Len()).
			Array("components", names))
	}
	zeroLoggerEvent.Array("archetypes", arrayLogger).Send()
}

// LogEntity logs where e lives and which components it holds.
func LogEntity(logger *zerolog.Logger, w *World, level zerolog.Level, e Entity) {
	loc, err := w.locate(e)
	if err != nil {
		logger.WithLevel(level).Err(err).Stringer("entity", e).Send()
		return
	}
	arch := w.archetypes.get(loc.archetype)
	infos := make([]*ComponentInfo, len(arch.columns))
	for i := range arch.columns {
		infos[i] = arch.columns[i].info
	}
	arrayLogger := zerolog.Arr()
	for _, info := range infos {
		arrayLogger = loadComponentIntoArrayLogger(info, arrayLogger)
	}
	logger.WithLevel(level).
		Array("components", arrayLogger).
		Stringer("entity", e).
		Int("archetype_id", int(loc.archetype)).
		Int("row", loc.row).
		Send()
}
