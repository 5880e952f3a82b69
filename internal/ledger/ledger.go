package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/pricing"
)

// PaymentMethod is how the customer settled a transaction.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentCard:
		return true
	}
	return false
}

// Item is a sold line. Product is a snapshot taken at sale time, so later
// catalog edits do not change recorded transactions.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Transaction is an immutable record of a completed checkout.
type Transaction struct {
	ID            string        `json:"id"`
	Items         []Item        `json:"items"`
	Subtotal      pricing.Money `json:"subtotal"`
	Tax           pricing.Money `json:"tax"`
	Total         pricing.Money `json:"total"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CustomerName  string        `json:"customerName,omitempty"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	RegionID      string        `json:"regionId"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Stats aggregates the transactions of one region.
type Stats struct {
	TotalRevenue      pricing.Money `json:"totalRevenue"`
	TotalTransactions int           `json:"totalTransactions"`
	TotalTax          pricing.Money `json:"totalTax"`
}

// Store is an append-only transaction log. Append assigns the id and
// creation time and trusts the totals it is given. List preserves append
// order.
type Store interface {
	Append(ctx context.Context, tx Transaction) (Transaction, error)
	List(ctx context.Context, regionID string) ([]Transaction, error)
	Stats(ctx context.Context, regionID string) (Stats, error)
}

// Summarize folds transactions into Stats.
func Summarize(txs []Transaction) Stats {
	var stats Stats
	for _, tx := range txs {
		stats.TotalRevenue = stats.TotalRevenue.Add(tx.Total)
		stats.TotalTax = stats.TotalTax.Add(tx.Tax)
		stats.TotalTransactions++
	}
	return stats
}

func cloneTransaction(tx Transaction) Transaction {
	tx.Items = slices.Clone(tx.Items)
	return tx
}
