package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/usecase"
	"github.com/iho/rewardledger/internal/usecase/mocks"
)

func TestRewardsConfig_RejectsInvalidDefaults(t *testing.T) {
	cfg := *defaultRewardsConfig()
	cfg.DefaultCurrency = ""

	if _, err := usecase.NewRewardsConfigUseCase(cfg, nil, nil, time.Minute, zerolog.Nop(), nil); !errors.Is(err, domain.ErrInvalidRewardsConfig) {
		t.Fatalf("expected ErrInvalidRewardsConfig, got %v", err)
	}
}

func TestRewardsConfig_Current(t *testing.T) {
	tests := []struct {
		name       string
		stored     map[string]string
		loadErr    error
		wantSource string
		check      func(t *testing.T, cfg *domain.RewardsConfig)
	}{
		{
			name:       "empty store keeps defaults",
			wantSource: "store",
			check: func(t *testing.T, cfg *domain.RewardsConfig) {
				if !cfg.ReferralEnabled || len(cfg.Deposit.Levels) != 2 {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name: "stored overrides win",
			stored: map[string]string{
				domain.SettingReferralDepositLevels: "1:7.5",
				domain.SettingRankAutoUpgrade:       "false",
			},
			wantSource: "store",
			check: func(t *testing.T, cfg *domain.RewardsConfig) {
				pct, ok := cfg.Deposit.PercentageFor(1)
				if !ok || !pct.Equal(dec("7.5")) || len(cfg.Deposit.Levels) != 1 {
					t.Errorf("deposit table = %+v", cfg.Deposit)
				}
				if cfg.AutoRankUpgrade {
					t.Error("auto upgrade should be overridden")
				}
			},
		},
		{
			name:       "invalid stored values fall back",
			stored:     map[string]string{domain.SettingReferralMaxLevel: "99"},
			wantSource: "defaults",
			check: func(t *testing.T, cfg *domain.RewardsConfig) {
				if cfg.MaxReferralLevel != 3 {
					t.Errorf("max level = %d, want default 3", cfg.MaxReferralLevel)
				}
			},
		},
		{
			name:       "store failure falls back",
			loadErr:    errors.New("db down"),
			wantSource: "defaults",
			check: func(t *testing.T, cfg *domain.RewardsConfig) {
				if cfg.DefaultCurrency != "USD" {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockRewardsSettingsStore(tt.stored)
			if tt.loadErr != nil {
				store.LoadFunc = func(ctx context.Context) (map[string]string, error) { return nil, tt.loadErr }
			}
			m := metrics.NewWithRegistry(prometheus.NewRegistry())

			uc, err := usecase.NewRewardsConfigUseCase(*defaultRewardsConfig(), store, nil, time.Minute, zerolog.Nop(), m)
			if err != nil {
				t.Fatalf("NewRewardsConfigUseCase failed: %v", err)
			}

			cfg, err := uc.Current(context.Background())
			if err != nil {
				t.Fatalf("Current must not fail: %v", err)
			}
			tt.check(t, cfg)

			if got := testutil.ToFloat64(m.RewardsConfigLoads.WithLabelValues(tt.wantSource)); got != 1 {
				t.Errorf("loads from %s = %v, want 1", tt.wantSource, got)
			}
		})
	}
}

func TestRewardsConfig_CacheAndUpdate(t *testing.T) {
	store := mocks.NewMockRewardsSettingsStore(nil)
	cache := &mocks.MockRewardsConfigCache{}

	loads := 0
	uc, err := usecase.NewRewardsConfigUseCase(*defaultRewardsConfig(), countingStore{store, &loads}, cache, time.Minute, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewRewardsConfigUseCase failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := uc.Current(context.Background()); err != nil {
			t.Fatalf("Current failed: %v", err)
		}
	}
	if loads != 1 || cache.Sets != 1 {
		t.Fatalf("loads = %d, cache sets = %d; expected one store read", loads, cache.Sets)
	}

	updated, err := uc.UpdateSettings(context.Background(), map[string]string{
		domain.SettingReferralPaymentLevels: "1:3,2:1",
	})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if len(updated.Payment.Levels) != 2 {
		t.Errorf("payment levels = %+v", updated.Payment.Levels)
	}
	if cache.Invalidations != 1 {
		t.Errorf("cache invalidations = %d, want 1", cache.Invalidations)
	}

	cfg, err := uc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	pct, _ := cfg.Payment.PercentageFor(2)
	if !pct.Equal(dec("1")) {
		t.Errorf("level 2 payment pct = %s after update", pct)
	}
}

func TestRewardsConfig_UpdateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "malformed levels", values: map[string]string{domain.SettingReferralDepositLevels: "1=10"}},
		{name: "percentage above 100", values: map[string]string{domain.SettingReferralDepositLevels: "1:150"}},
		{name: "level beyond max", values: map[string]string{domain.SettingReferralDepositLevels: "1:10,5:1"}},
		{name: "bad boolean", values: map[string]string{domain.SettingReferralEnabled: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockRewardsSettingsStore(nil)
			uc, err := usecase.NewRewardsConfigUseCase(*defaultRewardsConfig(), store, nil, time.Minute, zerolog.Nop(), nil)
			if err != nil {
				t.Fatalf("NewRewardsConfigUseCase failed: %v", err)
			}

			if _, err := uc.UpdateSettings(context.Background(), tt.values); !errors.Is(err, domain.ErrInvalidRewardsConfig) {
				t.Fatalf("expected ErrInvalidRewardsConfig, got %v", err)
			}

			stored, _ := store.Load(context.Background())
			if len(stored) != 0 {
				t.Errorf("rejected settings were saved: %v", stored)
			}
		})
	}
}

func TestRewardsConfig_UpdateWithoutStore(t *testing.T) {
	uc, err := usecase.NewRewardsConfigUseCase(*defaultRewardsConfig(), nil, nil, time.Minute, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("NewRewardsConfigUseCase failed: %v", err)
	}
	if _, err := uc.UpdateSettings(context.Background(), map[string]string{}); !errors.Is(err, usecase.ErrSettingsStoreUnavailable) {
		t.Fatalf("expected ErrSettingsStoreUnavailable, got %v", err)
	}
}

type countingStore struct {
	*mocks.MockRewardsSettingsStore
	loads *int
}

func (s countingStore) Load(ctx context.Context) (map[string]string, error) {
	*s.loads++
	return s.MockRewardsSettingsStore.Load(ctx)
}
