package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/money"
)

func TestArithmetic(t *testing.T) {
	a := money.New("USD", decimal.RequireFromString("10.50"))
	b := money.New("USD", decimal.RequireFromString("0.25"))

	assert.True(t, a.Add(b).Amount.Equal(decimal.RequireFromString("10.75")))
	assert.True(t, a.Sub(b).Amount.Equal(decimal.RequireFromString("10.25")))
	assert.True(t, a.Mul(decimal.NewFromInt(2)).Amount.Equal(decimal.RequireFromString("21")))
	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, "10.5 USD", a.String())
}

func TestCurrencyMismatchPanics(t *testing.T) {
	a := money.New("USD", decimal.NewFromInt(1))
	b := money.New("EUR", decimal.NewFromInt(1))
	assert.Panics(t, func() { a.Add(b) })
	assert.Panics(t, func() { a.Cmp(b) })
}

func TestFromString(t *testing.T) {
	m, err := money.FromString("BTC", "0.00000001")
	require.NoError(t, err)
	assert.True(t, m.IsPositive())

	_, err = money.FromString("BTC", "not-a-number")
	assert.Error(t, err)
}

func TestPredicates(t *testing.T) {
	assert.True(t, money.Zero("USD").IsZero())
	assert.True(t, money.New("USD", decimal.NewFromInt(-1)).IsNegative())
	assert.False(t, money.Zero("USD").IsPositive())
}

// 十进制精度在 JSON 往返中不丢失
func TestJSONRoundTrip(t *testing.T) {
	m := money.New("USD", decimal.RequireFromString("10.123456789"))
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var out money.Money
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Cmp(m) == 0)
	assert.Equal(t, m.Currency, out.Currency)
}
