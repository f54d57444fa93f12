package kafka_middleware

import (
	"context"
	"time"

	"fieldslots/pkg/kafka"
	"fieldslots/pkg/metrics"
)

func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		observe(m, metrics.DirectionPublish, start, err)
		return err
	}
}

func MetricsConsumerMiddleware(m *metrics.Metrics) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		err := next(ctx, msg)

		observe(m, metrics.DirectionConsume, start, err)
		return err
	}
}

func observe(m *metrics.Metrics, direction string, start time.Time, err error) {
	m.KafkaDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
	}
	m.KafkaMessages.WithLabelValues(direction, status).Inc()
}
