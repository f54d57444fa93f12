package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fieldslots/pkg/kafka"
	kafka_config "fieldslots/pkg/kafka/config"
	kafka_middleware "fieldslots/pkg/kafka/middleware"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
)

const frameBuffer = 64

// KafkaTransport carries feed commands on one topic and reads availability
// frames from another. Each session joins a fresh consumer group so every
// process sees every frame.
type KafkaTransport struct {
	cfg           *kafka_config.Config
	commandsTopic string
	updatesTopic  string
	groupPrefix   string
	source        string
	metrics       *metrics.Metrics
	log           *logger.Logger
}

type KafkaTopics struct {
	Commands    string
	Updates     string
	GroupPrefix string
	Source      string
}

func NewKafkaTransport(cfg *kafka_config.Config, topics KafkaTopics, m *metrics.Metrics, log *logger.Logger) *KafkaTransport {
	return &KafkaTransport{
		cfg:           cfg,
		commandsTopic: topics.Commands,
		updatesTopic:  topics.Updates,
		groupPrefix:   topics.GroupPrefix,
		source:        topics.Source,
		metrics:       m,
		log:           log,
	}
}

func (t *KafkaTransport) Dial(ctx context.Context) (Session, error) {
	if err := kafka.Ping(ctx, t.cfg); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(t.cfg, t.commandsTopic, t.log)
	if err != nil {
		return nil, fmt.Errorf("creating feed producer: %w", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(t.log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(t.metrics))

	sctx, cancel := context.WithCancel(context.Background())
	s := &kafkaSession{
		producer: producer,
		source:   t.source,
		frames:   make(chan Frame, frameBuffer),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	groupID := t.groupPrefix + uuid.NewString()
	consumer, err := kafka.NewConsumer(t.cfg, t.updatesTopic, groupID, s.handle, t.log)
	if err != nil {
		cancel()
		_ = producer.Close()
		return nil, fmt.Errorf("creating feed consumer: %w", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(t.log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(t.metrics))
	s.consumer = consumer

	go func() {
		defer close(s.done)
		if err := consumer.Start(sctx); err != nil && !errors.Is(err, context.Canceled) {
			t.log.Warn("Feed consumer stopped", "group_id", groupID, "error", err)
		}
	}()

	t.log.Debug("Feed session opened", "group_id", groupID, "updates_topic", t.updatesTopic)
	return s, nil
}

type kafkaSession struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	source   string
	frames   chan Frame
	done     chan struct{}
	cancel   context.CancelFunc
	once     sync.Once
}

func (s *kafkaSession) Send(ctx context.Context, ev Event) error {
	return s.producer.Publish(ctx, eventMessage(ev, s.source))
}

func (s *kafkaSession) Frames() <-chan Frame { return s.frames }

func (s *kafkaSession) Done() <-chan struct{} { return s.done }

func (s *kafkaSession) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = errors.Join(s.consumer.Close(), s.producer.Close())
	})
	return err
}

func (s *kafkaSession) handle(ctx context.Context, msg kafka.Message) error {
	select {
	case s.frames <- messageFrame(msg):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func eventMessage(ev Event, source string) kafka.Message {
	return kafka.NewMessage().
		WithKey(ev.Room).
		WithEventType(ev.Name).
		WithBranchID(ev.BranchID).
		WithSource(source).
		WithValue(ev.Payload).
		Build()
}

func messageFrame(msg kafka.Message) Frame {
	return Frame{
		Event:    msg.GetEventType(),
		Room:     msg.Key,
		BranchID: msg.GetBranchID(),
		Payload:  msg.Value,
	}
}
