package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
)

// ErrSettingsStoreUnavailable is returned by UpdateSettings when no store is wired.
var ErrSettingsStoreUnavailable = errors.New("rewards settings store not configured")

// RewardsConfigUseCase resolves the rewards configuration: process defaults,
// overridden by stored settings, cached for a TTL. It implements
// RewardsConfigProvider.
type RewardsConfigUseCase struct {
	defaults domain.RewardsConfig
	store    RewardsSettingsStore
	cache    RewardsConfigCache
	ttl      time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewRewardsConfigUseCase creates a new RewardsConfigUseCase. store and cache
// may be nil.
func NewRewardsConfigUseCase(
	defaults domain.RewardsConfig,
	store RewardsSettingsStore,
	cache RewardsConfigCache,
	ttl time.Duration,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) (*RewardsConfigUseCase, error) {
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	return &RewardsConfigUseCase{
		defaults: defaults,
		store:    store,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.With().Str("component", "rewards_config").Logger(),
		metrics:  metrics,
	}, nil
}

// Current returns the configuration in force. Store or validation failures
// fall back to the process defaults so fan-out keeps running.
func (uc *RewardsConfigUseCase) Current(ctx context.Context) (*domain.RewardsConfig, error) {
	if uc.cache != nil {
		cfg, ok, err := uc.cache.Get(ctx)
		if err != nil {
			uc.logger.Warn().Err(err).Msg("rewards config cache read failed")
		}
		if ok {
			uc.recordLoad("cache")
			return cfg, nil
		}
	}

	cfg := uc.resolve(ctx)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, cfg, uc.ttl); err != nil {
			uc.logger.Warn().Err(err).Msg("rewards config cache write failed")
		}
	}

	return cfg, nil
}

func (uc *RewardsConfigUseCase) resolve(ctx context.Context) *domain.RewardsConfig {
	defaults := uc.defaults

	if uc.store == nil {
		uc.recordLoad("defaults")
		return &defaults
	}

	values, err := uc.store.Load(ctx)
	if err != nil {
		uc.logger.Error().Err(err).Msg("failed to load rewards settings, using defaults")
		uc.recordLoad("defaults")
		return &defaults
	}

	cfg, err := defaults.ApplySettings(values)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		uc.logger.Error().Err(err).Msg("stored rewards settings rejected, using defaults")
		uc.recordLoad("defaults")
		return &defaults
	}

	uc.recordLoad("store")
	return cfg
}

// UpdateSettings validates and stores overrides, then drops the cached copy.
func (uc *RewardsConfigUseCase) UpdateSettings(ctx context.Context, values map[string]string) (*domain.RewardsConfig, error) {
	if uc.store == nil {
		return nil, ErrSettingsStoreUnavailable
	}

	stored, err := uc.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(stored)+len(values))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}

	cfg, err := uc.defaults.ApplySettings(merged)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidRewardsConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := uc.store.Save(ctx, values, time.Now().UTC()); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx); err != nil {
			uc.logger.Warn().Err(err).Msg("rewards config cache invalidation failed")
		}
	}

	uc.logger.Info().Int("keys", len(values)).Msg("rewards settings updated")

	return cfg, nil
}

func (uc *RewardsConfigUseCase) recordLoad(source string) {
	if uc.metrics != nil {
		uc.metrics.RewardsConfigLoads.WithLabelValues(source).Inc()
	}
}
