package main

import (
	"context"

	"fintrack/pkg/config"
	"fintrack/pkg/events"
	"fintrack/pkg/store"
	"fintrack/pkg/store/backend"

	"github.com/rs/zerolog"
)

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	st, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", cfg.StoreBackend).Msg("store ready")
	return st, nil
}

// openPublisher returns the AMQP publisher when AMQP_URL is set. A broker
// that cannot be reached at startup downgrades to the no-op publisher.
func openPublisher(cfg *config.Config, log zerolog.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.Nop{}
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Error().Err(err).Msg("event publishing disabled")
		return events.Nop{}
	}
	log.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing events over AMQP")
	return pub
}
