package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// ManualProvider is the provider tag of the manual gateway.
const ManualProvider = "manual"

// ErrUnknownReference is returned when a reference was never issued.
var ErrUnknownReference = errors.New("unknown gateway reference")

// ManualGateway settles external payments by operator confirmation. It
// issues references and keeps their status in Redis so every API instance
// sees the same outcome.
type ManualGateway struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewManualGateway creates a new ManualGateway. References expire after ttl;
// zero keeps them forever.
func NewManualGateway(client *redis.Client, ttl time.Duration) *ManualGateway {
	return &ManualGateway{
		client: client,
		prefix: "gateway:manual:",
		ttl:    ttl,
	}
}

// Provider implements usecase.PaymentGateway.
func (g *ManualGateway) Provider() string { return ManualProvider }

// InitiateDeposit implements usecase.PaymentGateway.
func (g *ManualGateway) InitiateDeposit(ctx context.Context, entry *domain.LedgerEntry) (string, error) {
	return g.issue(ctx, "DEP-"+entry.ID)
}

// InitiatePayout implements usecase.PaymentGateway.
func (g *ManualGateway) InitiatePayout(ctx context.Context, entry *domain.LedgerEntry) (string, error) {
	return g.issue(ctx, "PO-"+entry.ID)
}

// issue registers reference as pending. Re-initiating an entry keeps the
// status it already has.
func (g *ManualGateway) issue(ctx context.Context, reference string) (string, error) {
	if err := g.client.SetNX(ctx, g.prefix+reference, string(usecase.GatewayStatusPending), g.ttl).Err(); err != nil {
		return "", fmt.Errorf("issue manual reference: %w", err)
	}
	return reference, nil
}

// Verify implements usecase.PaymentGateway.
func (g *ManualGateway) Verify(ctx context.Context, reference string) (usecase.GatewayStatus, error) {
	status, err := g.client.Get(ctx, g.prefix+reference).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}
	if err != nil {
		return "", err
	}
	return usecase.GatewayStatus(status), nil
}

// RecordStatus implements usecase.StatusRecorder. Only issued references
// can be resolved.
func (g *ManualGateway) RecordStatus(ctx context.Context, reference string, status usecase.GatewayStatus) error {
	ok, err := g.client.SetXX(ctx, g.prefix+reference, string(status), redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("record manual status: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReference, reference)
	}
	return nil
}
