package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// EnsureTopic creates the todo-events topic with configured partitions (idempotent).
// If it fails (e.g. no broker or topic exists), the app still runs.
func EnsureTopic(ctx context.Context) {
	cfg := config.Get()
	if !cfg.EventsEnabled() {
		return
	}
	conn, err := kafka.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
	if err != nil {
		logger.Debug(ctx, "Kafka dial for topic creation failed", "error", err)
		return
	}
	defer conn.Close()
	controller, err := conn.Controller()
	if err != nil {
		logger.Debug(ctx, "Kafka controller lookup failed", "error", err)
		return
	}
	ctrlConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		logger.Debug(ctx, "Kafka controller dial failed", "error", err)
		return
	}
	defer ctrlConn.Close()
	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.KafkaTopic,
		NumPartitions:     cfg.KafkaPartitions,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Debug(ctx, "Kafka create topic failed (topic may already exist)", "error", err)
		return
	}
	logger.Info(ctx, "Kafka topic ensured", "topic", cfg.KafkaTopic, "partitions", cfg.KafkaPartitions)
}

var (
	writer *kafka.Writer
	wOnce  sync.Once
)

// Producer returns the global Kafka writer for todo events (initialized on first use).
// It returns nil when no brokers are configured.
func Producer(ctx context.Context) *kafka.Writer {
	wOnce.Do(func() {
		cfg := config.Get()
		if !cfg.EventsEnabled() {
			return
		}
		writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 0,
			Async:        true,
			RequiredAcks: kafka.RequireOne,
		}
		logger.Info(ctx, "Kafka producer initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	})
	return writer
}

// Publisher sends todo change events to Kafka.
type Publisher struct {
	w *kafka.Writer
}

// NewPublisher wraps the global producer. The returned publisher drops events when Kafka is disabled.
func NewPublisher(ctx context.Context) *Publisher {
	return &Publisher{w: Producer(ctx)}
}

// Publish writes one event keyed by todo id, so events for the same todo stay ordered.
func (p *Publisher) Publish(ctx context.Context, ev *models.TodoEvent) error {
	if p == nil || p.w == nil {
		return nil
	}
	msg, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

// EncodeEvent builds the Kafka message for ev.
func EncodeEvent(ev *models.TodoEvent) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(ev.ID), Value: payload}, nil
}

// DecodeEvent parses a message value produced by EncodeEvent.
func DecodeEvent(value []byte) (*models.TodoEvent, error) {
	var ev models.TodoEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" || ev.ID == "" {
		return nil, fmt.Errorf("malformed todo event: %q", value)
	}
	return &ev, nil
}

// Topic returns the todo events topic name.
func Topic() string {
	return config.Get().KafkaTopic
}

// Brokers returns Kafka broker addresses.
func Brokers() []string {
	return config.Get().KafkaBrokers
}
