// Package money 提供带货币标识的精确十进制金额类型
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency 货币/资产代码，如 "USD"、"BTC"
type Currency string

// Money 金额值对象，内部使用精确十进制表示
type Money struct {
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// New 创建金额
func New(currency Currency, amount decimal.Decimal) Money {
	return Money{Currency: currency, Amount: amount}
}

// FromString 从字符串创建金额
func FromString(currency Currency, s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Currency: currency, Amount: d}, nil
}

// Zero 返回指定货币的零金额
func Zero(currency Currency) Money {
	return Money{Currency: currency, Amount: decimal.Zero}
}

// Add 加法。货币不一致属于编程错误，直接 panic
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Currency: m.Currency, Amount: m.Amount.Add(other.Amount)}
}

// Sub 减法
func (m Money) Sub(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Currency: m.Currency, Amount: m.Amount.Sub(other.Amount)}
}

// Mul 按系数相乘
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{Currency: m.Currency, Amount: m.Amount.Mul(factor)}
}

// Cmp 比较，返回 -1/0/1
func (m Money) Cmp(other Money) int {
	m.assertSameCurrency(other)
	return m.Amount.Cmp(other.Amount)
}

// IsZero 是否为零
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative 是否为负
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// IsPositive 是否为正
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// String 格式化为 "amount currency"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}

func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("currency mismatch: %s vs %s", m.Currency, other.Currency))
	}
}
