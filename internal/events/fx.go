package events

import (
	"context"

	"github.com/smallbiznis/campstay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

// NewPublisher connects to RabbitMQ when RABBITMQ_URL is set and falls
// back to a noop publisher otherwise.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Publisher, error) {
	if cfg.RabbitMQURL == "" {
		log.Info("events publisher disabled; RABBITMQ_URL not set")
		return NewNoopPublisher(), nil
	}

	publisher, err := Dial(cfg.RabbitMQURL, cfg.EventsExchange, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}
