package application

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/transaction/domain"
)

var errMissingField = errors.New("missing required field")

// StartTransactionCommand 启动交易
type StartTransactionCommand struct {
	TransactionID string
	TradeType     domain.TradeType
	OrderBookID   string
	PortfolioID   string
	ItemID        string
	Quantity      decimal.Decimal
	PricePerItem  money.Money
	Commission    money.Money
}

// CommandType 命令类型
func (c StartTransactionCommand) CommandType() string { return "StartTransaction" }

// TargetID 目标聚合
func (c StartTransactionCommand) TargetID() string { return c.TransactionID }

// Validate 同步校验
func (c StartTransactionCommand) Validate() error {
	if c.TransactionID == "" || c.OrderBookID == "" || c.PortfolioID == "" || c.ItemID == "" {
		return errMissingField
	}
	if c.TradeType != domain.TradeTypeBuy && c.TradeType != domain.TradeTypeSell {
		return errors.New("trade type must be BUY or SELL")
	}
	if !c.Quantity.IsPositive() || !c.PricePerItem.IsPositive() {
		return errors.New("quantity and price must be positive")
	}
	if c.Commission.IsNegative() {
		return errors.New("commission must be non-negative")
	}
	return nil
}

// ConfirmTransactionCommand 确认交易
type ConfirmTransactionCommand struct {
	TransactionID string
}

// CommandType 命令类型
func (c ConfirmTransactionCommand) CommandType() string { return "ConfirmTransaction" }

// TargetID 目标聚合
func (c ConfirmTransactionCommand) TargetID() string { return c.TransactionID }

// Validate 同步校验
func (c ConfirmTransactionCommand) Validate() error {
	if c.TransactionID == "" {
		return errMissingField
	}
	return nil
}

// ExecuteTransactionCommand 记录一个执行切片（由 saga 在成交事件后派发）
type ExecuteTransactionCommand struct {
	TransactionID string
	Quantity      decimal.Decimal
	Price         money.Money
}

// CommandType 命令类型
func (c ExecuteTransactionCommand) CommandType() string { return "ExecuteTransaction" }

// TargetID 目标聚合
func (c ExecuteTransactionCommand) TargetID() string { return c.TransactionID }

// Validate 同步校验
func (c ExecuteTransactionCommand) Validate() error {
	if c.TransactionID == "" {
		return errMissingField
	}
	if !c.Quantity.IsPositive() || !c.Price.IsPositive() {
		return errors.New("quantity and price must be positive")
	}
	return nil
}

// CancelTransactionCommand 取消交易
type CancelTransactionCommand struct {
	TransactionID string
}

// CommandType 命令类型
func (c CancelTransactionCommand) CommandType() string { return "CancelTransaction" }

// TargetID 目标聚合
func (c CancelTransactionCommand) TargetID() string { return c.TransactionID }

// Validate 同步校验
func (c CancelTransactionCommand) Validate() error {
	if c.TransactionID == "" {
		return errMissingField
	}
	return nil
}
