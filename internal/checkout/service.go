package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/events"
	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/obs"
	"github.com/noah-isme/kasir-api/internal/payment"
	"github.com/noah-isme/kasir-api/internal/pricing"
	"github.com/noah-isme/kasir-api/internal/region"
)

const (
	// CodePaymentDeclined is returned when the payment provider refuses a charge.
	CodePaymentDeclined = "PAYMENT_DECLINED"
	// CodePaymentUnavailable is returned while the provider circuit is open.
	CodePaymentUnavailable = "PAYMENT_UNAVAILABLE"
)

// ProductLookup resolves catalog products by id.
type ProductLookup interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// ProductRef accepts the cart item shape where the full product is sent.
type ProductRef struct {
	ID string `json:"id"`
}

// ItemInput is one requested line. Either productId or product.id names the
// product; any price or tax rate sent by the client is ignored.
type ItemInput struct {
	ProductID string      `json:"productId"`
	Product   *ProductRef `json:"product"`
	Quantity  int         `json:"quantity" validate:"gte=1"`
}

func (it ItemInput) id() string {
	if id := strings.TrimSpace(it.ProductID); id != "" {
		return id
	}
	if it.Product != nil {
		return strings.TrimSpace(it.Product.ID)
	}
	return ""
}

// Input is the checkout request. Client-computed totals are not part of it.
type Input struct {
	Items         []ItemInput          `json:"items" validate:"required,min=1,dive"`
	PaymentMethod ledger.PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash upi card"`
	CustomerName  string               `json:"customerName"`
	CustomerEmail string               `json:"customerEmail" validate:"omitempty,email"`
	RegionID      string               `json:"regionId" validate:"required"`
}

// Service records checkouts. It is the only writer of the ledger and always
// prices items from the catalog itself.
type Service struct {
	products ProductLookup
	ledger   ledger.Store
	regions  *region.Registry
	payments payment.Provider
	events   *events.Bus
}

// Config groups Service dependencies. Payments and Events are optional.
type Config struct {
	Products ProductLookup
	Ledger   ledger.Store
	Regions  *region.Registry
	Payments payment.Provider
	Events   *events.Bus
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Products == nil || cfg.Ledger == nil || cfg.Regions == nil {
		return nil, errors.New("checkout: products, ledger and regions are required")
	}
	return &Service{
		products: cfg.Products,
		ledger:   cfg.Ledger,
		regions:  cfg.Regions,
		payments: cfg.Payments,
		events:   cfg.Events,
	}, nil
}

// Record validates the request, recomputes totals from catalog prices, takes
// the payment and appends the transaction.
func (s *Service) Record(ctx context.Context, in Input) (ledger.Transaction, error) {
	ctx, span := otel.Tracer("checkout").Start(ctx, "checkout.Record")
	defer span.End()

	in.RegionID = strings.TrimSpace(in.RegionID)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	if err := common.Validate(in); err != nil {
		return ledger.Transaction{}, err
	}
	reg, ok := s.regions.Lookup(in.RegionID)
	if !ok {
		return ledger.Transaction{}, common.ValidationError("regionId", fmt.Sprintf("unknown region %q", in.RegionID))
	}
	items, err := s.resolve(ctx, in)
	if err != nil {
		return ledger.Transaction{}, err
	}
	summary := pricing.Compute(toPricingItems(items))
	span.SetAttributes(
		attribute.String("checkout.region", reg.ID),
		attribute.Int("checkout.items", len(items)),
		attribute.String("checkout.total", summary.Total.String()),
	)

	if s.payments != nil {
		_, err := payment.Authorize(ctx, s.payments, payment.Charge{
			Method:   in.PaymentMethod,
			Amount:   summary.Total,
			RegionID: reg.ID,
			Currency: reg.Currency,
		})
		if err != nil {
			if errors.Is(err, payment.ErrDeclined) {
				return ledger.Transaction{}, common.NewAppError(CodePaymentDeclined, "payment was declined", http.StatusPaymentRequired, err)
			}
			if errors.Is(err, payment.ErrUnavailable) {
				return ledger.Transaction{}, common.NewAppError(CodePaymentUnavailable, "payment provider unavailable, try again shortly", http.StatusServiceUnavailable, err)
			}
			return ledger.Transaction{}, fmt.Errorf("authorize payment: %w", err)
		}
	}

	tx, err := s.ledger.Append(ctx, ledger.Transaction{
		Items:         items,
		Subtotal:      summary.Subtotal,
		Tax:           summary.Tax,
		Total:         summary.Total,
		PaymentMethod: in.PaymentMethod,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		RegionID:      reg.ID,
	})
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))
	recordMetrics(tx)
	s.emit(ctx, tx)
	return tx, nil
}

// History returns the transactions of a region (or all of them) and, when a
// region is given, its stats.
func (s *Service) History(ctx context.Context, regionID string) ([]ledger.Transaction, *ledger.Stats, error) {
	regionID = strings.TrimSpace(regionID)
	txs, err := s.ledger.List(ctx, regionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	if regionID == "" {
		return txs, nil, nil
	}
	// Stats come from the same snapshot so they always agree with txs.
	stats := ledger.Summarize(txs)
	return txs, &stats, nil
}

func (s *Service) resolve(ctx context.Context, in Input) ([]ledger.Item, error) {
	items := make([]ledger.Item, 0, len(in.Items))
	for i, req := range in.Items {
		field := fmt.Sprintf("items[%d].productId", i)
		id := req.id()
		if id == "" {
			return nil, common.ValidationError(field, field+" is required")
		}
		p, err := s.products.Get(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, common.ValidationError(field, fmt.Sprintf("unknown product %q", id))
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", id, err)
		}
		if !p.Active() {
			return nil, common.ValidationError(field, fmt.Sprintf("product %q is not available", id))
		}
		if p.RegionID != in.RegionID {
			return nil, common.ValidationError(field, fmt.Sprintf("product %q is not sold in region %q", id, in.RegionID))
		}
		items = append(items, ledger.Item{Product: p, Quantity: req.Quantity})
	}
	return items, nil
}

func (s *Service) emit(ctx context.Context, tx ledger.Transaction) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Emit(ctx, events.TopicTransactionRecorded, tx.ID, tx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("transaction_id", tx.ID).Msg("transaction event delivery failed")
	}
}

func toPricingItems(items []ledger.Item) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{Price: it.Product.Price, TaxRate: it.Product.TaxRate, Quantity: it.Quantity})
	}
	return out
}

func recordMetrics(tx ledger.Transaction) {
	if obs.TransactionsRecordedTotal == nil {
		return
	}
	obs.TransactionsRecordedTotal.WithLabelValues(tx.RegionID, string(tx.PaymentMethod)).Inc()
	obs.TransactionRevenueTotal.WithLabelValues(tx.RegionID).Add(tx.Total.Float64())
	obs.TransactionTaxTotal.WithLabelValues(tx.RegionID).Add(tx.Tax.Float64())
}
