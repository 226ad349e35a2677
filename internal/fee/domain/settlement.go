package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

// ErrSettlementAlreadyStarted 费用结算重复启动
var ErrSettlementAlreadyStarted = errors.New("fee settlement already started")

// FeeSettlement 费用结算聚合。一次成交的佣金结算入口，
// 只负责固定结算涉及的标识并发出启动事件，后续流程由 saga 驱动
type FeeSettlement struct {
	eventsourcing.AggregateBase

	started bool
}

// NewFeeSettlement 创建空费用结算（仓储回放前的零值）
func NewFeeSettlement() *FeeSettlement {
	return &FeeSettlement{}
}

// Start 启动费用结算
func (s *FeeSettlement) Start(id, tradeTransactionID string, amount money.Money, payableFeeID, paidFeeID, offsetID string, dueDate time.Time) error {
	if s.started {
		return ErrSettlementAlreadyStarted
	}
	if !amount.IsPositive() {
		return fmt.Errorf("invalid fee settlement: amount must be positive")
	}
	if tradeTransactionID == "" || payableFeeID == "" || paidFeeID == "" || offsetID == "" {
		return fmt.Errorf("invalid fee settlement: all identifiers required")
	}

	s.SetAggregateID(id)
	s.raise(&FeeSettlementStartedEvent{
		BaseEvent:          eventsourcing.NewBaseEvent(id),
		TradeTransactionID: tradeTransactionID,
		Amount:             amount,
		PayableFeeID:       payableFeeID,
		PaidFeeID:          paidFeeID,
		OffsetID:           offsetID,
		DueDate:            dueDate,
	})
	return nil
}

// Apply 事件折叠
func (s *FeeSettlement) Apply(event eventsourcing.DomainEvent) {
	if _, ok := event.(*FeeSettlementStartedEvent); ok {
		s.started = true
	}
}

func (s *FeeSettlement) raise(event eventsourcing.DomainEvent) {
	s.Apply(event)
	s.Record(event)
}
