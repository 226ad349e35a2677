package domain

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// TradeType 交易方向
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// TransactionStartedEvent 交易启动事件，买卖方向以枚举表达
type TransactionStartedEvent struct {
	eventsourcing.BaseEvent
	TradeType     TradeType       `json:"trade_type"`
	OrderBookID   string          `json:"order_book_id"`
	PortfolioID   string          `json:"portfolio_id"`
	ItemID        string          `json:"item_id"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	PricePerItem  money.Money     `json:"price_per_item"`
	Commission    money.Money     `json:"commission"`
}

// EventType 返回事件类型
func (e *TransactionStartedEvent) EventType() string { return "TransactionStarted" }

// TransactionConfirmedEvent 交易确认事件
type TransactionConfirmedEvent struct {
	eventsourcing.BaseEvent
	TradeType TradeType `json:"trade_type"`
}

// EventType 返回事件类型
func (e *TransactionConfirmedEvent) EventType() string { return "TransactionConfirmed" }

// TransactionPartiallyExecutedEvent 交易部分执行事件，携带本次执行切片
type TransactionPartiallyExecutedEvent struct {
	eventsourcing.BaseEvent
	TradeType     TradeType       `json:"trade_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	TotalExecuted decimal.Decimal `json:"total_executed"`
	Price         money.Money     `json:"price"`
}

// EventType 返回事件类型
func (e *TransactionPartiallyExecutedEvent) EventType() string { return "TransactionPartiallyExecuted" }

// TransactionExecutedEvent 交易完全执行事件，携带最后一个执行切片
type TransactionExecutedEvent struct {
	eventsourcing.BaseEvent
	TradeType    TradeType       `json:"trade_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        money.Money     `json:"price"`
	AveragePrice money.Money     `json:"average_price"`
}

// EventType 返回事件类型
func (e *TransactionExecutedEvent) EventType() string { return "TransactionExecuted" }

// TransactionCancelledEvent 交易取消事件，记录未执行的剩余数量
type TransactionCancelledEvent struct {
	eventsourcing.BaseEvent
	TradeType         TradeType       `json:"trade_type"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ExecutedQuantity  decimal.Decimal `json:"executed_quantity"`
}

// EventType 返回事件类型
func (e *TransactionCancelledEvent) EventType() string { return "TransactionCancelled" }

// Events 返回本上下文全部事件原型，供注册表登记
func Events() []eventsourcing.DomainEvent {
	return []eventsourcing.DomainEvent{
		&TransactionStartedEvent{},
		&TransactionConfirmedEvent{},
		&TransactionPartiallyExecutedEvent{},
		&TransactionExecutedEvent{},
		&TransactionCancelledEvent{},
	}
}
