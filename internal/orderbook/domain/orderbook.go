// Package domain 订单簿聚合：价格-时间优先撮合，全部状态变更以事件表达
package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	algorithm "github.com/wyfcoding/pkg/algos/structures"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
)

var (
	// ErrOrderBookAlreadyCreated 订单簿重复创建
	ErrOrderBookAlreadyCreated = errors.New("order book already created")
	// ErrOrderBookNotCreated 订单簿尚未创建
	ErrOrderBookNotCreated = errors.New("order book not created")
	// ErrOrderNotFound 订单簿中不存在该订单
	ErrOrderNotFound = errors.New("order not found in book")
	// ErrOrderNotOpen 订单已成交或已取消，取消是无副作用的空操作
	ErrOrderNotOpen = errors.New("order already filled or cancelled")
	// ErrInvalidOrder 订单参数非法
	ErrInvalidOrder = errors.New("invalid order")
)

// OrderBook 订单簿聚合。
// 买盘以 -Price 为键（降序遍历得最高买价），卖盘以 Price 为键（升序遍历得最低卖价），
// 同档位内以 FIFO 保证时间优先
type OrderBook struct {
	eventsourcing.AggregateBase

	created  bool
	itemID   string
	currency money.Currency

	bids    *algorithm.SkipList[float64, *OrderLevel]
	asks    *algorithm.SkipList[float64, *OrderLevel]
	resting map[string]*Order
	placed  map[string]bool
}

// NewOrderBook 创建空订单簿（仓储回放前的零值）
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:    algorithm.NewSkipList[float64, *OrderLevel](),
		asks:    algorithm.NewSkipList[float64, *OrderLevel](),
		resting: make(map[string]*Order),
		placed:  make(map[string]bool),
	}
}

// ItemID 返回交易标的
func (b *OrderBook) ItemID() string { return b.itemID }

// Currency 返回计价货币
func (b *OrderBook) Currency() money.Currency { return b.currency }

// Create 创建订单簿
func (b *OrderBook) Create(id, itemID string, currency money.Currency) error {
	if b.created {
		return ErrOrderBookAlreadyCreated
	}
	if itemID == "" || currency == "" {
		return fmt.Errorf("%w: item and currency required", ErrInvalidOrder)
	}

	b.SetAggregateID(id)
	e := &OrderBookCreatedEvent{
		BaseEvent: eventsourcing.NewBaseEvent(id),
		ItemID:    itemID,
		Currency:  currency,
	}
	b.raise(e)
	return nil
}

// PlaceBuyOrder 挂买单并立即尝试撮合
func (b *OrderBook) PlaceBuyOrder(orderID, transactionID, portfolioID string, quantity decimal.Decimal, price money.Money) error {
	return b.placeOrder(SideBuy, orderID, transactionID, portfolioID, quantity, price)
}

// PlaceSellOrder 挂卖单并立即尝试撮合
func (b *OrderBook) PlaceSellOrder(orderID, transactionID, portfolioID string, quantity decimal.Decimal, price money.Money) error {
	return b.placeOrder(SideSell, orderID, transactionID, portfolioID, quantity, price)
}

func (b *OrderBook) placeOrder(side Side, orderID, transactionID, portfolioID string, quantity decimal.Decimal, price money.Money) error {
	if !b.created {
		return ErrOrderBookNotCreated
	}
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if price.Currency != b.currency {
		return fmt.Errorf("%w: price currency %s does not match book currency %s",
			ErrInvalidOrder, price.Currency, b.currency)
	}
	// 档位键是 float64，超出其精度的价格会与相邻档位混同，入簿前拒绝
	if !decimal.NewFromFloat(price.Amount.InexactFloat64()).Equal(price.Amount) {
		return fmt.Errorf("%w: price %s exceeds book price resolution", ErrInvalidOrder, price.Amount)
	}
	// 同一订单重复投递时幂等跳过
	if b.placed[orderID] {
		return nil
	}

	b.raise(&OrderPlacedEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(b.AggregateID()),
		OrderID:       orderID,
		TransactionID: transactionID,
		PortfolioID:   portfolioID,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
	})

	b.match(orderID)
	return nil
}

// match 以价格-时间优先撮合新挂单，每笔成交产生一条 TradeExecutedEvent。
// 事件在产生时即应用到簿内状态，因此每轮都从最新状态取最优对手档
func (b *OrderBook) match(incomingID string) {
	for {
		incoming, ok := b.resting[incomingID]
		if !ok {
			return // 已完全成交并移出订单簿
		}

		opposing := b.bestOpposing(incoming.Side)
		if opposing == nil {
			return
		}

		// 买单价 >= 卖盘最优价、卖单价 <= 买盘最优价时成交
		if incoming.Side == SideBuy && incoming.Price.Cmp(opposing.Price) < 0 {
			return
		}
		if incoming.Side == SideSell && incoming.Price.Cmp(opposing.Price) > 0 {
			return
		}

		quantity := decimal.Min(incoming.Remaining, opposing.Remaining)
		e := &TradeExecutedEvent{
			BaseEvent: eventsourcing.NewBaseEvent(b.AggregateID()),
			ItemID:    b.itemID,
			Quantity:  quantity,
			// 成交价永远取被动方（先挂）订单的价格
			Price: opposing.Price,
		}
		if incoming.Side == SideBuy {
			e.BuyOrderID = incoming.ID
			e.SellOrderID = opposing.ID
			e.BuyTransactionID = incoming.TransactionID
			e.SellTransactionID = opposing.TransactionID
		} else {
			e.BuyOrderID = opposing.ID
			e.SellOrderID = incoming.ID
			e.BuyTransactionID = opposing.TransactionID
			e.SellTransactionID = incoming.TransactionID
		}
		b.raise(e)
	}
}

// bestOpposing 返回对手盘最优档位的队首订单
func (b *OrderBook) bestOpposing(side Side) *Order {
	book := b.asks
	if side == SideSell {
		book = b.bids
	}
	it := book.Iterator()
	_, level, ok := it.Next()
	if !ok {
		return nil
	}
	front := level.Orders.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*Order)
}

// CancelOrder 取消挂单。订单已完全成交或已取消时返回 ErrOrderNotOpen，不产生事件
func (b *OrderBook) CancelOrder(orderID string) error {
	if !b.created {
		return ErrOrderBookNotCreated
	}
	order, ok := b.resting[orderID]
	if !ok {
		if b.placed[orderID] {
			return ErrOrderNotOpen
		}
		return ErrOrderNotFound
	}

	b.raise(&OrderCancelledEvent{
		BaseEvent:     eventsourcing.NewBaseEvent(b.AggregateID()),
		OrderID:       orderID,
		TransactionID: order.TransactionID,
		Side:          order.Side,
		Remaining:     order.Remaining,
	})
	return nil
}

// Apply 事件折叠，回放与在线处理共用同一份状态转移逻辑
func (b *OrderBook) Apply(event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *OrderBookCreatedEvent:
		b.created = true
		b.itemID = e.ItemID
		b.currency = e.Currency
	case *OrderPlacedEvent:
		b.applyOrderPlaced(e)
	case *TradeExecutedEvent:
		b.reduceOrder(e.BuyOrderID, e.Quantity)
		b.reduceOrder(e.SellOrderID, e.Quantity)
	case *OrderCancelledEvent:
		b.removeOrder(e.OrderID)
	}
}

func (b *OrderBook) applyOrderPlaced(e *OrderPlacedEvent) {
	order := &Order{
		ID:            e.OrderID,
		TransactionID: e.TransactionID,
		PortfolioID:   e.PortfolioID,
		Side:          e.Side,
		Price:         e.Price,
		Quantity:      e.Quantity,
		Remaining:     e.Quantity,
		PlacedAt:      e.OccurredAt(),
	}
	b.placed[order.ID] = true
	b.resting[order.ID] = order

	book, key := b.sideBook(order.Side, order.Price)
	level, ok := book.Search(key)
	if !ok {
		level = NewOrderLevel(order.Price)
		book.Insert(key, level)
	}
	level.Orders.PushBack(order)
}

func (b *OrderBook) reduceOrder(orderID string, quantity decimal.Decimal) {
	order, ok := b.resting[orderID]
	if !ok {
		return
	}
	order.Remaining = order.Remaining.Sub(quantity)
	if order.Remaining.IsZero() {
		b.removeOrder(orderID)
	}
}

func (b *OrderBook) removeOrder(orderID string) {
	order, ok := b.resting[orderID]
	if !ok {
		return
	}
	delete(b.resting, orderID)

	book, key := b.sideBook(order.Side, order.Price)
	level, ok := book.Search(key)
	if !ok {
		return
	}
	for el := level.Orders.Front(); el != nil; el = el.Next() {
		if el.Value.(*Order) == order {
			level.Orders.Remove(el)
			break
		}
	}
	if level.Orders.Len() == 0 {
		book.Delete(key)
	}
}

func (b *OrderBook) sideBook(side Side, price money.Money) (*algorithm.SkipList[float64, *OrderLevel], float64) {
	key := price.Amount.InexactFloat64()
	if side == SideBuy {
		return b.bids, -key
	}
	return b.asks, key
}

func (b *OrderBook) raise(event eventsourcing.DomainEvent) {
	b.Apply(event)
	b.Record(event)
}
