package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/usecase"
)

// EventPublisher handles publishing events from the outbox.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	batchSize  int
	interval   time.Duration
	retention  time.Duration
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	BatchSize  int           // Number of events to fetch per batch
	Interval   time.Duration // Polling interval
	// Retention is how long published events are kept; zero keeps them forever.
	Retention time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger.With().Str("component", "outbox").Logger(),
		metrics:    cfg.Metrics,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
		retention:  cfg.Retention,
	}
}

// Start begins the event publishing worker.
// It runs continuously until the context is cancelled.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	// Process immediately on start
	if err := ep.processEvents(ctx); err != nil {
		ep.logger.Error().Err(err).Msg("error processing events on start")
	}

	for {
		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("event publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := ep.processEvents(ctx); err != nil {
				ep.logger.Error().Err(err).Msg("error processing events")
			}
			ep.purge(ctx)
		}
	}
}

// processEvents fetches and publishes a batch of unpublished events.
func (ep *EventPublisher) processEvents(ctx context.Context) error {
	events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	ep.logger.Debug().Int("count", len(events)).Msg("processing events")

	for _, event := range events {
		if err := ep.publishEvent(ctx, event); err != nil {
			ep.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			if ep.metrics != nil {
				ep.metrics.OutboxErrors.Inc()
			}
			// Left unpublished; the next tick redelivers it.
			continue
		}

		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC()); err != nil {
			ep.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Msg("failed to mark event as published")
			continue
		}

		if ep.metrics != nil {
			ep.metrics.OutboxPublished.Inc()
		}
	}

	return nil
}

func (ep *EventPublisher) purge(ctx context.Context) {
	if ep.retention <= 0 {
		return
	}

	if err := ep.outboxRepo.DeletePublished(ctx, time.Now().UTC().Add(-ep.retention)); err != nil {
		ep.logger.Warn().Err(err).Msg("failed to purge published events")
	}
}

// publishEvent publishes a single event.
func (ep *EventPublisher) publishEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if err := ep.publisher.Publish(ctx, event); err != nil {
		return err
	}

	ep.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		Msg("event published")

	return nil
}

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}

// DefaultEventsChannel is the pub/sub channel outbox events are sent to.
const DefaultEventsChannel = "rewardledger:events"

// RedisPublisher publishes outbox events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a new RedisPublisher. An empty channel uses
// DefaultEventsChannel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

type redisEvent struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Publish sends the event as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := json.Marshal(redisEvent{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// DispatchPublisher turns entry.settled events back into settled events and
// runs the fan-out dispatcher on them. Other event types pass through.
// Delivery is at least once, so every handler must tolerate repeats.
type DispatchPublisher struct {
	entries    usecase.EntryRepository
	accounts   usecase.AccountRepository
	dispatcher usecase.SettledDispatcher
}

// NewDispatchPublisher creates a new DispatchPublisher.
func NewDispatchPublisher(entries usecase.EntryRepository, accounts usecase.AccountRepository, dispatcher usecase.SettledDispatcher) *DispatchPublisher {
	return &DispatchPublisher{
		entries:    entries,
		accounts:   accounts,
		dispatcher: dispatcher,
	}
}

// Publish dispatches event when it is an entry.settled event.
func (p *DispatchPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	if event.EventType != domain.EventTypeEntrySettled {
		return nil
	}

	entry, err := p.entries.GetByID(ctx, event.AggregateID)
	if err != nil {
		return fmt.Errorf("load settled entry %s: %w", event.AggregateID, err)
	}

	account, err := p.accounts.GetByID(ctx, entry.AccountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", entry.AccountID, err)
	}

	delta, err := entry.SignedAmount()
	if err != nil {
		return err
	}

	return p.dispatcher.Dispatch(ctx, &domain.SettledEvent{
		Entry:     entry,
		Account:   account,
		Delta:     delta,
		SettledAt: event.CreatedAt,
	})
}

// MultiPublisher hands each event to every publisher in order and fails if
// any of them fails.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
