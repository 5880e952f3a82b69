package ledger

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-api/internal/catalog"
	"github.com/noah-isme/kasir-api/internal/pricing"
)

func sampleTx(regionID string, subtotal, tax string) Transaction {
	s := pricing.MustParseMoney(subtotal)
	t := pricing.MustParseMoney(tax)
	return Transaction{
		Items:         []Item{{Product: catalog.Product{ID: "1", Name: "Item", Price: 1, RegionID: regionID}, Quantity: 1}},
		Subtotal:      s,
		Tax:           t,
		Total:         s.Add(t),
		PaymentMethod: PaymentCash,
		RegionID:      regionID,
	}
}

func TestAppendAssignsUniqueOrderedIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tx, err := store.Append(ctx, sampleTx("in", "10", "1"))
		require.NoError(t, err)
		require.NotEmpty(t, tx.ID)
		require.False(t, seen[tx.ID])
		seen[tx.ID] = true
		require.False(t, tx.CreatedAt.IsZero())
	}

	list, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 20)
	for i := 1; i < len(list); i++ {
		require.Less(t, list[i-1].ID, list[i].ID)
	}
}

func TestListFiltersByRegionPreservingOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	first, err := store.Append(ctx, sampleTx("in", "10", "1"))
	require.NoError(t, err)
	_, err = store.Append(ctx, sampleTx("us", "5", "0.41"))
	require.NoError(t, err)
	third, err := store.Append(ctx, sampleTx("in", "20", "2"))
	require.NoError(t, err)

	in, err := store.List(ctx, "in")
	require.NoError(t, err)
	require.Len(t, in, 2)
	require.Equal(t, first.ID, in[0].ID)
	require.Equal(t, third.ID, in[1].ID)

	none, err := store.List(ctx, "jp")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestStatsMatchesRecomputation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	rng := rand.New(rand.NewSource(7))
	regions := []string{"in", "us", "uk"}
	prices := []string{"4.99", "0.10", "56", "2.2", "1.5"}
	taxes := []string{"0.41", "0", "6.72", "0.44", "0.01"}

	for i := 0; i < 60; i++ {
		_, err := store.Append(ctx, sampleTx(regions[rng.Intn(len(regions))], prices[rng.Intn(len(prices))], taxes[rng.Intn(len(taxes))]))
		require.NoError(t, err)

		for _, regionID := range regions {
			stats, err := store.Stats(ctx, regionID)
			require.NoError(t, err)
			list, err := store.List(ctx, regionID)
			require.NoError(t, err)

			revenue, tax := pricing.Zero, pricing.Zero
			for _, tx := range list {
				revenue = revenue.Add(tx.Total)
				tax = tax.Add(tx.Tax)
			}
			require.Equal(t, len(list), stats.TotalTransactions)
			require.True(t, revenue.Equal(stats.TotalRevenue))
			require.True(t, tax.Equal(stats.TotalTax))
		}
	}
}

func TestStatsEmptyRegion(t *testing.T) {
	stats, err := NewMemoryStore(nil).Stats(context.Background(), "ae")
	require.NoError(t, err)
	require.Zero(t, stats.TotalTransactions)
	require.True(t, stats.TotalRevenue.IsZero())
	require.True(t, stats.TotalTax.IsZero())
}

func TestRecordedItemsAreSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(func() time.Time { return time.Unix(0, 0) })
	tx := sampleTx("in", "10", "1")
	stored, err := store.Append(ctx, tx)
	require.NoError(t, err)

	tx.Items[0].Product.Price = 999
	stored.Items[0].Product.Name = "changed"

	list, err := store.List(ctx, "in")
	require.NoError(t, err)
	require.Equal(t, 1.0, list[0].Items[0].Product.Price)
	require.Equal(t, "Item", list[0].Items[0].Product.Name)
}

func TestPaymentMethodValid(t *testing.T) {
	require.True(t, PaymentCash.Valid())
	require.True(t, PaymentUPI.Valid())
	require.True(t, PaymentCard.Valid())
	require.False(t, PaymentMethod("bitcoin").Valid())
	require.False(t, PaymentMethod("").Valid())
}
