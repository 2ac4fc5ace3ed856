package ecs

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const metricsNamespace = "comet."

// NewStatsdClient builds a namespaced statsd client for WithMetrics.
func NewStatsdClient(address string, tags []string) (statsd.ClientInterface, error) {
	if address == "" {
		return nil, eris.New("statsd address must not be empty")
	}
	opts := []statsd.Option{
		statsd.WithNamespace(metricsNamespace),
	}
	if len(tags) > 0 {
		opts = append(opts, statsd.WithTags(tags))
	}
	client, err := statsd.New(address, opts...)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to create statsd client for %s", address)
	}
	return client, nil
}

func emitTickStat(client statsd.ClientInterface, logger *zerolog.Logger, start time.Time, stage string) {
	if err := client.Timing("tick", time.Since(start), []string{"stage:" + stage}, 1); err != nil {
		logger.Warn().Err(err).Str("stage", stage).Msg("failed to emit tick stat")
	}
}

func emitGauge(client statsd.ClientInterface, logger *zerolog.Logger, name string, value int) {
	if err := client.Gauge(name, float64(value), nil, 1); err != nil {
		logger.Warn().Err(err).Str("gauge", name).Msg("failed to emit gauge")
	}
}
