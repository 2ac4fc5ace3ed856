package ecs

import (
	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/TheBitDrifter/table"
	"github.com/rs/zerolog"
)

func WithConfig(cfg Config) Option {
	return func(w *World) {
		w.config = cfg
	}
}

// WithLogger replaces the default no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

func WithMetrics(client statsd.ClientInterface) Option {
	return func(w *World) {
		w.metrics = client
	}
}

// WithSchema assigns component ids from a shared schema, so every world built
// on it agrees on ids for the same types.
func WithSchema(schema table.Schema) Option {
	return func(w *World) {
		w.schema = schema
	}
}
