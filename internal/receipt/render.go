package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/kasir-api/internal/ledger"
	"github.com/noah-isme/kasir-api/internal/pricing"
	"github.com/noah-isme/kasir-api/internal/region"
)

// Render produces the subject and plain-text body of a receipt. Amounts are
// formatted in the transaction region's currency.
func Render(tx ledger.Transaction, regions *region.Registry) (string, string) {
	reg := regions.Get(tx.RegionID)
	money := func(m pricing.Money) string { return regions.FormatMoney(m, reg.ID) }

	var b strings.Builder
	name := strings.TrimSpace(tx.CustomerName)
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Hi %s,\n\nThank you for your purchase.\n\n", name)
	fmt.Fprintf(&b, "Receipt: %s\nDate: %s\nPayment: %s\n\n", tx.ID, tx.CreatedAt.UTC().Format(time.RFC1123), strings.ToUpper(string(tx.PaymentMethod)))
	for _, it := range tx.Items {
		line := pricing.LineTotal(pricing.Item{Price: it.Product.Price, TaxRate: it.Product.TaxRate, Quantity: it.Quantity})
		fmt.Fprintf(&b, "%d x %s  %s\n", it.Quantity, it.Product.Name, money(line))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n%s: %s\nTotal: %s\n", money(tx.Subtotal), reg.TaxName, money(tx.Tax), money(tx.Total))

	subject := fmt.Sprintf("Your receipt %s (%s)", shortID(tx.ID), money(tx.Total))
	return subject, b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
