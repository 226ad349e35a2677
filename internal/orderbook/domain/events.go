package domain

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// OrderBookCreatedEvent 订单簿创建事件
type OrderBookCreatedEvent struct {
	eventsourcing.BaseEvent
	ItemID   string         `json:"item_id"`
	Currency money.Currency `json:"currency"`
}

// EventType 返回事件类型
func (e *OrderBookCreatedEvent) EventType() string { return "OrderBookCreated" }

// OrderPlacedEvent 订单进入订单簿事件
type OrderPlacedEvent struct {
	eventsourcing.BaseEvent
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	PortfolioID   string          `json:"portfolio_id"`
	Side          Side            `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         money.Money     `json:"price"`
}

// EventType 返回事件类型
func (e *OrderPlacedEvent) EventType() string { return "OrderPlaced" }

// TradeExecutedEvent 成交事件，携带双方订单与交易标识
type TradeExecutedEvent struct {
	eventsourcing.BaseEvent
	ItemID            string          `json:"item_id"`
	BuyOrderID        string          `json:"buy_order_id"`
	SellOrderID       string          `json:"sell_order_id"`
	BuyTransactionID  string          `json:"buy_transaction_id"`
	SellTransactionID string          `json:"sell_transaction_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	Price             money.Money     `json:"price"`
}

// EventType 返回事件类型
func (e *TradeExecutedEvent) EventType() string { return "TradeExecuted" }

// OrderCancelledEvent 订单取消事件，携带取消时的剩余数量
type OrderCancelledEvent struct {
	eventsourcing.BaseEvent
	OrderID       string          `json:"order_id"`
	TransactionID string          `json:"transaction_id"`
	Side          Side            `json:"side"`
	Remaining     decimal.Decimal `json:"remaining"`
}

// EventType 返回事件类型
func (e *OrderCancelledEvent) EventType() string { return "OrderCancelled" }

// Events 返回本上下文全部事件原型，供注册表登记
func Events() []eventsourcing.DomainEvent {
	return []eventsourcing.DomainEvent{
		&OrderBookCreatedEvent{},
		&OrderPlacedEvent{},
		&TradeExecutedEvent{},
		&OrderCancelledEvent{},
	}
}
