package payment

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/obs"
	"github.com/noah-isme/kasir-api/internal/pricing"
)

// ErrDeclined is returned when a provider refuses a charge.
var ErrDeclined = errors.New("payment: declined")

// Charge describes the amount a customer settles at the checkout.
type Charge struct {
	Method   ledger.PaymentMethod
	Amount   pricing.Money
	RegionID string
	Currency string
}

// Authorization is a provider's confirmation of a charge.
type Authorization struct {
	Provider     string               `json:"provider"`
	Reference    string               `json:"reference"`
	Method       ledger.PaymentMethod `json:"method"`
	Amount       pricing.Money        `json:"amount"`
	AuthorizedAt time.Time            `json:"authorizedAt"`
}

// Provider abstracts the upstream that settles a charge.
type Provider interface {
	Name() string
	Authorize(ctx context.Context, charge Charge) (Authorization, error)
}

// Authorize calls p inside a span and records the outcome metric.
func Authorize(ctx context.Context, p Provider, charge Charge) (Authorization, error) {
	ctx, span := otel.Tracer("payment").Start(ctx, "payment.Authorize")
	defer span.End()

	start := time.Now()
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", p.Name()),
			attribute.String("payment.method", string(charge.Method)),
			attribute.String("payment.region", charge.RegionID),
			attribute.Float64("payment.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("payment.result", result),
		)
		if obs.PaymentAuthorizationsTotal != nil {
			obs.PaymentAuthorizationsTotal.WithLabelValues(p.Name(), string(charge.Method), result).Inc()
		}
	}()

	auth, err := p.Authorize(ctx, charge)
	switch {
	case err == nil:
		result = "authorized"
	case errors.Is(err, ErrDeclined):
		result = "declined"
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Authorization{}, err
	}
	return auth, nil
}
