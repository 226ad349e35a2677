package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/orderbook/domain"
)

const usd = money.Currency("USD")

func newBook(t *testing.T) *domain.OrderBook {
	t.Helper()
	book := domain.NewOrderBook()
	require.NoError(t, book.Create("book-1", "AAPL", usd))
	book.ClearUncommitted()
	return book
}

func price(s string) money.Money {
	return money.New(usd, decimal.RequireFromString(s))
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// trades 提取并清空未提交事件中的成交
func trades(book *domain.OrderBook) []*domain.TradeExecutedEvent {
	var out []*domain.TradeExecutedEvent
	for _, e := range book.Uncommitted() {
		if trade, ok := e.(*domain.TradeExecutedEvent); ok {
			out = append(out, trade)
		}
	}
	book.ClearUncommitted()
	return out
}

func TestMatchAtRestingOrderPrice(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-s1", "pf-s", qty("100"), price("100")))
	require.Empty(t, trades(book))

	// 买方出价更高，成交价仍取先挂的卖单价
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-b1", "pf-b", qty("100"), price("102")))
	executed := trades(book)
	require.Len(t, executed, 1)
	assert.True(t, executed[0].Price.Cmp(price("100")) == 0, "price %s", executed[0].Price)
	assert.True(t, executed[0].Quantity.Equal(qty("100")))
	assert.Equal(t, "b1", executed[0].BuyOrderID)
	assert.Equal(t, "s1", executed[0].SellOrderID)
	assert.Equal(t, "tx-b1", executed[0].BuyTransactionID)
	assert.Equal(t, "tx-s1", executed[0].SellTransactionID)
}

func TestTimePriorityWithinLevel(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-s1", "pf-a", qty("10"), price("100")))
	require.NoError(t, book.PlaceSellOrder("s2", "tx-s2", "pf-b", qty("10"), price("100")))
	book.ClearUncommitted()

	require.NoError(t, book.PlaceBuyOrder("b1", "tx-b1", "pf-c", qty("10"), price("100")))
	executed := trades(book)
	require.Len(t, executed, 1)
	assert.Equal(t, "s1", executed[0].SellOrderID, "earlier order at same price fills first")
}

func TestPricePriorityAcrossLevels(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s-high", "tx-1", "pf-a", qty("10"), price("101")))
	require.NoError(t, book.PlaceSellOrder("s-low", "tx-2", "pf-b", qty("10"), price("100")))
	book.ClearUncommitted()

	// 买单吃穿两档：先成交最低卖价，再成交次优
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-3", "pf-c", qty("20"), price("102")))
	executed := trades(book)
	require.Len(t, executed, 2)
	assert.Equal(t, "s-low", executed[0].SellOrderID)
	assert.True(t, executed[0].Price.Cmp(price("100")) == 0)
	assert.Equal(t, "s-high", executed[1].SellOrderID)
	assert.True(t, executed[1].Price.Cmp(price("101")) == 0)
}

func TestNoMatchWhenPricesDoNotCross(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("10"), price("101")))
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-2", "pf-b", qty("10"), price("100")))
	assert.Empty(t, trades(book))
}

func TestPartialFillLeavesRemainderResting(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("100"), price("100")))
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-2", "pf-b", qty("40"), price("100")))
	executed := trades(book)
	require.Len(t, executed, 1)
	assert.True(t, executed[0].Quantity.Equal(qty("40")))

	// 剩余 60 仍在簿内，继续与后续买单成交
	require.NoError(t, book.PlaceBuyOrder("b2", "tx-3", "pf-c", qty("60"), price("100")))
	executed = trades(book)
	require.Len(t, executed, 1)
	assert.True(t, executed[0].Quantity.Equal(qty("60")))
	assert.Equal(t, "s1", executed[0].SellOrderID)
}

func TestCancelOrder(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("10"), price("100")))
	book.ClearUncommitted()

	require.NoError(t, book.CancelOrder("s1"))
	events := book.Uncommitted()
	require.Len(t, events, 1)
	cancelled := events[0].(*domain.OrderCancelledEvent)
	assert.Equal(t, "s1", cancelled.OrderID)
	assert.True(t, cancelled.Remaining.Equal(qty("10")))
	book.ClearUncommitted()

	// 取消后买单不再有对手盘
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-2", "pf-b", qty("10"), price("100")))
	assert.Empty(t, trades(book))
}

func TestCancelFilledOrderIsNotOpen(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("10"), price("100")))
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-2", "pf-b", qty("10"), price("100")))
	book.ClearUncommitted()

	assert.ErrorIs(t, book.CancelOrder("s1"), domain.ErrOrderNotOpen)
	assert.ErrorIs(t, book.CancelOrder("missing"), domain.ErrOrderNotFound)
	assert.Empty(t, book.Uncommitted())
}

func TestDuplicatePlacementIsIdempotent(t *testing.T) {
	book := newBook(t)

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("10"), price("100")))
	book.ClearUncommitted()

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("10"), price("100")))
	assert.Empty(t, book.Uncommitted())
}

func TestRejectsCurrencyMismatch(t *testing.T) {
	book := newBook(t)

	err := book.PlaceBuyOrder("b1", "tx-1", "pf-a", qty("10"), money.New("EUR", decimal.NewFromInt(100)))
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

// float64 档位键放不下的超精度价格在入簿前被拒绝
func TestRejectsPriceBeyondBookResolution(t *testing.T) {
	book := newBook(t)

	err := book.PlaceBuyOrder("b1", "tx-1", "pf-a", qty("10"), price("1.00000000000000000001"))
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

// 回放历史事件重建的订单簿必须与在线状态一致，撮合可以无缝继续
func TestReplayRebuildsBookState(t *testing.T) {
	book := newBook(t)
	var history []eventsourcing.DomainEvent
	history = append(history, &domain.OrderBookCreatedEvent{
		BaseEvent: eventsourcing.NewBaseEvent("book-1"),
		ItemID:    "AAPL",
		Currency:  usd,
	})

	require.NoError(t, book.PlaceSellOrder("s1", "tx-1", "pf-a", qty("100"), price("100")))
	require.NoError(t, book.PlaceBuyOrder("b1", "tx-2", "pf-b", qty("40"), price("100")))
	history = append(history, book.Uncommitted()...)

	replayed := domain.NewOrderBook()
	for _, e := range history {
		replayed.Apply(e)
	}

	// 回放不重新撮合：剩余 60 照常与新买单成交
	require.NoError(t, replayed.PlaceBuyOrder("b2", "tx-3", "pf-c", qty("60"), price("100")))
	executed := trades(replayed)
	require.Len(t, executed, 1)
	assert.True(t, executed[0].Quantity.Equal(qty("60")))
	assert.Equal(t, "s1", executed[0].SellOrderID)
}
