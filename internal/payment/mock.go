package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mock approves every supported charge after an optional processing delay.
// It stands in for the cash drawer, UPI and card terminals of the demo
// checkout.
type Mock struct {
	Delay   time.Duration
	Decline func(Charge) bool
	Now     func() time.Time
}

// Name implements Provider.
func (m *Mock) Name() string { return "mock" }

// Authorize implements Provider.
func (m *Mock) Authorize(ctx context.Context, charge Charge) (Authorization, error) {
	if !charge.Method.Valid() {
		return Authorization{}, fmt.Errorf("%w: unsupported method %q", ErrDeclined, charge.Method)
	}
	if charge.Amount.Decimal().IsNegative() {
		return Authorization{}, fmt.Errorf("%w: negative amount", ErrDeclined)
	}
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Authorization{}, ctx.Err()
		case <-timer.C:
		}
	}
	if m.Decline != nil && m.Decline(charge) {
		return Authorization{}, ErrDeclined
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return Authorization{
		Provider:     m.Name(),
		Reference:    "mock_" + uuid.NewString(),
		Method:       charge.Method,
		Amount:       charge.Amount,
		AuthorizedAt: now().UTC(),
	}, nil
}
