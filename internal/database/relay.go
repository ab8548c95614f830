package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultStream receives import events unless REDIS_STREAM overrides it.
const DefaultStream = "stream:product_imports"

// RedisClient is the slice of go-redis the relay needs, an interface so
// tests can swap in a mock.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// OutboxRepo is the outbox surface the relay consumes.
type OutboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	QueueDepth(ctx context.Context) (pending, deadLetter int64, err error)
}

// Relay drains the import outbox into a Redis stream. It polls on a
// fixed interval; a publish failure reschedules the event through the
// outbox backoff instead of stopping the loop.
type Relay struct {
	redis     RedisClient
	outbox    OutboxRepo
	logger    *slog.Logger
	stream    string
	interval  time.Duration
	batchSize int
}

// RelayConfig tunes the relay. Zero values fall back to a 5s poll,
// batches of 100 and DefaultStream.
type RelayConfig struct {
	Stream       string
	PollInterval time.Duration
	BatchSize    int
}

func NewRelay(db *DB, redisClient *redis.Client, logger *slog.Logger, config RelayConfig) *Relay {
	if config.Stream == "" {
		config.Stream = DefaultStream
	}
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Relay{
		redis:     redisClient,
		outbox:    NewOutboxRepository(db),
		logger:    logger.With("component", "outbox_relay"),
		stream:    config.Stream,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
	}
}

// Start runs the poll loop until the context is cancelled. The first
// batch is processed immediately rather than after one interval.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("starting outbox relay",
		"stream", r.stream,
		"interval", r.interval,
		"batch_size", r.batchSize)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.processEvents(ctx); err != nil {
		r.logger.Error("failed to process events on startup", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.processEvents(ctx); err != nil {
				r.logger.Error("failed to process events", "error", err)
			}
		}
	}
}

func (r *Relay) processEvents(ctx context.Context) error {
	events, err := r.outbox.GetPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	r.logger.Debug("relaying import events", "count", len(events))

	for _, event := range events {
		if err := r.processEvent(ctx, event); err != nil {
			r.logger.Error("failed to relay event",
				"event_id", event.ID,
				"import_id", event.ImportID,
				"error", err)
		}
	}

	return nil
}

func (r *Relay) processEvent(ctx context.Context, event *OutboxEvent) error {
	if err := r.publish(ctx, event); err != nil {
		if markErr := r.outbox.MarkFailed(ctx, event.ID, err); markErr != nil {
			r.logger.Error("failed to mark event as failed",
				"event_id", event.ID,
				"error", markErr)
		}
		return err
	}

	if err := r.outbox.MarkProcessed(ctx, event.ID); err != nil {
		r.logger.Error("failed to mark event as processed",
			"event_id", event.ID,
			"error", err)
		return err
	}

	r.logger.Info("import event relayed",
		"event_id", event.ID,
		"event_type", event.EventType,
		"import_id", event.ImportID,
		"stream", r.stream)

	return nil
}

// publish adds the event to the Redis stream. The full serialized event
// rides in "data"; the flat fields let consumers filter without
// decoding it.
func (r *Relay) publish(ctx context.Context, event *OutboxEvent) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	streamData := map[string]interface{}{
		"event_id":    event.ID.String(),
		"event_type":  event.EventType,
		"import_id":   event.ImportID,
		"occurred_at": event.CreatedAt.Format(time.RFC3339),
		"payload":     payload,
		"metadata": map[string]interface{}{
			"source":      "product-extractor",
			"retry_count": event.RetryCount,
		},
	}

	dataJSON, err := json.Marshal(streamData)
	if err != nil {
		return fmt.Errorf("failed to marshal stream data: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"data":        string(dataJSON),
			"event_id":    event.ID.String(),
			"event_type":  event.EventType,
			"import_id":   event.ImportID,
			"occurred_at": fmt.Sprintf("%d", event.CreatedAt.UnixNano()),
		},
	}

	if _, err := r.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	return nil
}

// QueueDepth exposes the outbox backlog for the health endpoint.
func (r *Relay) QueueDepth(ctx context.Context) (pending, deadLetter int64, err error) {
	return r.outbox.QueueDepth(ctx)
}
