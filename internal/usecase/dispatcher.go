package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// Dispatcher delivers settled events to the registered handlers in
// registration order. A handler failure is logged and does not stop the
// handlers after it.
type Dispatcher struct {
	config  RewardsConfigProvider
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	handlers []SettledHandler
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(config RewardsConfigProvider, logger zerolog.Logger, metrics *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		config:  config,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
		metrics: metrics,
	}
}

// Register appends handlers. Handlers create entries through the use cases
// that settle into this dispatcher, so they are registered after construction.
func (d *Dispatcher) Register(handlers ...SettledHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handlers...)
}

// Dispatch loads one configuration snapshot and runs every handler with it.
// It returns the joined handler errors so at-least-once callers can redeliver.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.SettledEvent) error {
	cfg, err := d.config.Current(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("entry_id", event.Entry.ID).Msg("failed to load rewards configuration")
		if d.metrics != nil {
			d.metrics.FanoutFailures.WithLabelValues("config").Inc()
		}
		return fmt.Errorf("load rewards configuration: %w", err)
	}

	d.mu.RLock()
	handlers := append([]SettledHandler(nil), d.handlers...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.HandleSettled(ctx, event, cfg); err != nil {
			d.logger.Error().
				Err(err).
				Str("handler", h.Name()).
				Str("entry_id", event.Entry.ID).
				Str("type", string(event.Entry.Type)).
				Msg("settled handler failed")
			if d.metrics != nil {
				d.metrics.FanoutFailures.WithLabelValues(h.Name()).Inc()
			}
			errs = append(errs, fmt.Errorf("%s: %w", h.Name(), err))
		}
	}

	return errors.Join(errs...)
}
