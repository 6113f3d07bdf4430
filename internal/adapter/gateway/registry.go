package gateway

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iho/rewardledger/internal/domain"
	"github.com/iho/rewardledger/internal/usecase"
)

// Registry resolves provider tags to gateways.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]usecase.PaymentGateway
}

// NewRegistry creates a registry holding gateways.
func NewRegistry(gateways ...usecase.PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]usecase.PaymentGateway)}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

// Register adds g under its provider tag, replacing any previous gateway.
func (r *Registry) Register(g usecase.PaymentGateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Provider()] = g
}

// Get implements usecase.GatewayRegistry.
func (r *Registry) Get(provider string) (usecase.PaymentGateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
	}
	return g, nil
}

// Providers lists the registered provider tags in order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.gateways))
	for p := range r.gateways {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
