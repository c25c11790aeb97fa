package worker

import (
	"context"
	"os"

	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/internal/queue"
	"todo-api/pkg/logger"
	"todo-api/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

// Invalidator is told that another replica changed the shared store.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Run starts the Kafka consumer: reads todo events published by every replica
// and hands them to inv, so in-flight reads started before a remote mutation
// are not shared with reads issued after it. Each process needs every event,
// so every replica joins a consumer group of its own.
func Run(ctx context.Context, inv Invalidator) {
	cfg := config.Get()
	if !cfg.EventsEnabled() {
		logger.Info(ctx, "Worker disabled (no Kafka brokers)")
		return
	}

	group := GroupID(cfg.KafkaGroupID)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     queue.Brokers(),
		Topic:       queue.Topic(),
		GroupID:     group,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	defer reader.Close()

	logger.Info(ctx, "Kafka consumer started", "topic", queue.Topic(), "group", group)
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "Worker fetch failed", "error", err)
			continue
		}
		if _, err := HandleMessage(ctx, msg.Value, inv); err != nil {
			logger.Error(ctx, "Worker handle failed", "error", err, "payload", string(msg.Value))
			// Commit anyway to avoid poison pill blocking the partition
		}
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Error(ctx, "Worker commit failed", "error", err)
		}
	}
}

// GroupID derives this replica's consumer group from the configured prefix and the host name.
func GroupID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return prefix
	}
	return prefix + "-" + host
}

// HandleMessage decodes one event and notifies inv of it.
func HandleMessage(ctx context.Context, payload []byte, inv Invalidator) (*models.TodoEvent, error) {
	ev, err := queue.DecodeEvent(payload)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues("invalid").Inc()
		return nil, err
	}
	switch ev.Type {
	case models.EventCreated, models.EventUpdated, models.EventToggled, models.EventDeleted:
		if inv != nil {
			inv.Invalidate(ctx)
		}
		metrics.EventsConsumed.WithLabelValues(ev.Type).Inc()
		logger.Debug(ctx, "Todo event applied", "type", ev.Type, "id", ev.ID)
	default:
		metrics.EventsConsumed.WithLabelValues("unknown").Inc()
		logger.Debug(ctx, "Ignoring unknown todo event", "type", ev.Type, "id", ev.ID)
	}
	return ev, nil
}
