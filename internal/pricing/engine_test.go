package pricing

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePerLineTax(t *testing.T) {
	items := []Item{
		{Price: 10, TaxRate: 5, Quantity: 2},
		{Price: 56, TaxRate: 12, Quantity: 1},
	}
	summary := Compute(items)

	require.True(t, summary.Subtotal.Equal(MustParseMoney("76")), "subtotal %s", summary.Subtotal)
	require.True(t, summary.Tax.Equal(MustParseMoney("7.72")), "tax %s", summary.Tax)
	require.True(t, summary.Total.Equal(MustParseMoney("83.72")), "total %s", summary.Total)
}

func TestComputeDoesNotBlendRates(t *testing.T) {
	items := []Item{
		{Price: 100, TaxRate: 0, Quantity: 1},
		{Price: 100, TaxRate: 28, Quantity: 1},
	}
	summary := Compute(items)
	require.True(t, summary.Tax.Equal(MustParseMoney("28")), "tax %s", summary.Tax)

	var perLine Money
	for _, it := range items {
		perLine = perLine.Add(LineTax(it))
	}
	require.True(t, summary.Tax.Equal(perLine))
}

func TestComputeEmpty(t *testing.T) {
	summary := Compute(nil)
	require.True(t, summary.Subtotal.IsZero())
	require.True(t, summary.Tax.IsZero())
	require.True(t, summary.Total.IsZero())
}

func TestComputeTotalIsExactSum(t *testing.T) {
	items := []Item{
		{Price: 4.99, TaxRate: 8.25, Quantity: 3},
		{Price: 3.49, TaxRate: 0, Quantity: 1},
		{Price: 2.99, TaxRate: 8.25, Quantity: 7},
		{Price: 0.1, TaxRate: 20, Quantity: 3},
	}
	summary := Compute(items)
	require.True(t, summary.Total.Equal(summary.Subtotal.Add(summary.Tax)))
	require.True(t, summary.Subtotal.Equal(MustParseMoney("39.69")), "subtotal %s", summary.Subtotal)
}

func TestComputeOrderIndependent(t *testing.T) {
	items := []Item{
		{Price: 4.99, TaxRate: 8.25, Quantity: 3},
		{Price: 0.1, TaxRate: 20, Quantity: 3},
		{Price: 1.5, TaxRate: 5, Quantity: 11},
		{Price: 40, TaxRate: 28, Quantity: 2},
		{Price: 2.2, TaxRate: 10, Quantity: 1},
	}
	want := Compute(items)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]Item(nil), items...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Compute(shuffled)
		require.True(t, want.Subtotal.Equal(got.Subtotal))
		require.True(t, want.Tax.Equal(got.Tax))
		require.True(t, want.Total.Equal(got.Total))
	}
}

func TestComputeAcceptsNegativeInput(t *testing.T) {
	summary := Compute([]Item{{Price: -10, TaxRate: 10, Quantity: 1}})
	require.True(t, summary.Total.Equal(MustParseMoney("-11")))
}

func TestMoneyJSONIsNumber(t *testing.T) {
	data, err := json.Marshal(Summary{
		Subtotal: MustParseMoney("76"),
		Tax:      MustParseMoney("7.72"),
		Total:    MustParseMoney("83.72"),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"subtotal":76,"tax":7.72,"total":83.72}`, string(data))

	var decoded struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.25,"b":"2.50"}`), &decoded))
	require.True(t, decoded.A.Equal(MustParseMoney("1.25")))
	require.True(t, decoded.B.Equal(MustParseMoney("2.5")))
	require.Equal(t, 83.72, MustParseMoney("83.72").Float64())
}
