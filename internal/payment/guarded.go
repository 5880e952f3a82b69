package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/kasir-api/internal/resilience"
)

// ErrUnavailable is returned when the provider circuit is open.
var ErrUnavailable = errors.New("payment: provider unavailable")

// Guarded wraps a Provider with a circuit breaker. Declines are answers from
// the provider and do not trip the breaker.
type Guarded struct {
	Provider Provider
	Breaker  *resilience.Breaker
}

// NewGuarded wraps p with b, labelling b with the provider name.
func NewGuarded(p Provider, b *resilience.Breaker) *Guarded {
	return &Guarded{Provider: p, Breaker: b.WithTarget("payment-" + p.Name())}
}

// Name implements Provider.
func (g *Guarded) Name() string { return g.Provider.Name() }

// Authorize implements Provider.
func (g *Guarded) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	var auth Authorization
	err := g.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		auth, err = g.Provider.Authorize(ctx, charge)
		return err
	}, countsAgainstProvider)
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return Authorization{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return auth, err
}

func countsAgainstProvider(err error) bool {
	return !errors.Is(err, ErrDeclined) && !errors.Is(err, context.Canceled)
}
