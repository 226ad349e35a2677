package application

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/money"
)

var errMissingField = errors.New("missing required field")

// CreateOrderBookCommand 创建订单簿
type CreateOrderBookCommand struct {
	OrderBookID string
	ItemID      string
	Currency    money.Currency
}

// CommandType 命令类型
func (c CreateOrderBookCommand) CommandType() string { return "CreateOrderBook" }

// TargetID 目标聚合
func (c CreateOrderBookCommand) TargetID() string { return c.OrderBookID }

// Validate 同步校验
func (c CreateOrderBookCommand) Validate() error {
	if c.OrderBookID == "" || c.ItemID == "" || c.Currency == "" {
		return errMissingField
	}
	return nil
}

// PlaceBuyOrderCommand 挂买单
type PlaceBuyOrderCommand struct {
	OrderBookID   string
	OrderID       string
	TransactionID string
	PortfolioID   string
	Quantity      decimal.Decimal
	Price         money.Money
}

// CommandType 命令类型
func (c PlaceBuyOrderCommand) CommandType() string { return "PlaceBuyOrder" }

// TargetID 目标聚合
func (c PlaceBuyOrderCommand) TargetID() string { return c.OrderBookID }

// Validate 同步校验
func (c PlaceBuyOrderCommand) Validate() error {
	return validatePlaceOrder(c.OrderBookID, c.OrderID, c.Quantity, c.Price)
}

// PlaceSellOrderCommand 挂卖单
type PlaceSellOrderCommand struct {
	OrderBookID   string
	OrderID       string
	TransactionID string
	PortfolioID   string
	Quantity      decimal.Decimal
	Price         money.Money
}

// CommandType 命令类型
func (c PlaceSellOrderCommand) CommandType() string { return "PlaceSellOrder" }

// TargetID 目标聚合
func (c PlaceSellOrderCommand) TargetID() string { return c.OrderBookID }

// Validate 同步校验
func (c PlaceSellOrderCommand) Validate() error {
	return validatePlaceOrder(c.OrderBookID, c.OrderID, c.Quantity, c.Price)
}

// CancelOrderCommand 取消挂单
type CancelOrderCommand struct {
	OrderBookID string
	OrderID     string
}

// CommandType 命令类型
func (c CancelOrderCommand) CommandType() string { return "CancelOrder" }

// TargetID 目标聚合
func (c CancelOrderCommand) TargetID() string { return c.OrderBookID }

// Validate 同步校验
func (c CancelOrderCommand) Validate() error {
	if c.OrderBookID == "" || c.OrderID == "" {
		return errMissingField
	}
	return nil
}

func validatePlaceOrder(orderBookID, orderID string, quantity decimal.Decimal, price money.Money) error {
	if orderBookID == "" || orderID == "" {
		return errMissingField
	}
	if !quantity.IsPositive() {
		return errors.New("quantity must be positive")
	}
	if !price.IsPositive() {
		return errors.New("price must be positive")
	}
	return nil
}
