package domain

import (
	"container/list"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/money"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Order 订单簿中的挂单
type Order struct {
	ID            string
	TransactionID string
	PortfolioID   string
	Side          Side
	Price         money.Money
	Quantity      decimal.Decimal
	Remaining     decimal.Decimal
	PlacedAt      time.Time
}

// OrderLevel 表示同一价格档位下的订单集合，保证时间优先 (FIFO)
type OrderLevel struct {
	Price  money.Money
	Orders *list.List // 存储 *Order
}

// NewOrderLevel 创建价格档位
func NewOrderLevel(price money.Money) *OrderLevel {
	return &OrderLevel{
		Price:  price,
		Orders: list.New(),
	}
}
