package saga_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	feeapp "github.com/wyfcoding/tradecore/internal/fee/application"
	"github.com/wyfcoding/tradecore/internal/money"
	obapp "github.com/wyfcoding/tradecore/internal/orderbook/application"
	pfapp "github.com/wyfcoding/tradecore/internal/portfolio/application"
	pfdomain "github.com/wyfcoding/tradecore/internal/portfolio/domain"
	"github.com/wyfcoding/tradecore/internal/saga"
	txapp "github.com/wyfcoding/tradecore/internal/transaction/application"
	txdomain "github.com/wyfcoding/tradecore/internal/transaction/domain"
)

const (
	testCurrency = money.Currency("USD")
	testItem     = "AAPL"
	testBook     = "book-AAPL"
)

// harness 内存事件存储加完整命令/事件总线的闭环测试装置
type harness struct {
	t        *testing.T
	store    *eventsourcing.MemoryEventStore
	commands *eventsourcing.CommandBus
	events   *eventsourcing.EventBus
	manager  *saga.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := eventsourcing.NewMemoryEventStore()
	events := eventsourcing.NewEventBus()
	commands := eventsourcing.NewCommandBus(logger)

	obapp.NewOrderBookService(store, events, logger).RegisterHandlers(commands)
	pfapp.NewPortfolioService(store, events, logger).RegisterHandlers(commands)
	txapp.NewTransactionService(store, events, logger).RegisterHandlers(commands)
	feeapp.NewFeeService(store, events, logger).RegisterHandlers(commands)

	manager := saga.NewManager(commands, logger, nil)
	events.Subscribe(manager.HandleEvent)

	t.Cleanup(commands.Close)
	return &harness{t: t, store: store, commands: commands, events: events, manager: manager}
}

func (h *harness) dispatch(cmds ...eventsourcing.Command) {
	h.t.Helper()
	for _, cmd := range cmds {
		require.NoError(h.t, h.commands.Dispatch(context.Background(), cmd))
	}
	h.commands.Drain()
}

func (h *harness) portfolio(id string) *pfdomain.Portfolio {
	h.t.Helper()
	repo := eventsourcing.NewRepository(h.store, pfdomain.NewPortfolio)
	p, err := repo.Load(context.Background(), id)
	require.NoError(h.t, err)
	return p
}

func (h *harness) transaction(id string) *txdomain.Transaction {
	h.t.Helper()
	repo := eventsourcing.NewRepository(h.store, txdomain.NewTransaction)
	tx, err := repo.Load(context.Background(), id)
	require.NoError(h.t, err)
	return tx
}

func (h *harness) setupMarket(sellerCash, buyerCash string, sellerItems int64) {
	h.t.Helper()
	h.dispatch(
		obapp.CreateOrderBookCommand{OrderBookID: testBook, ItemID: testItem, Currency: testCurrency},
		pfapp.CreatePortfolioCommand{PortfolioID: "pf-seller", UserID: "u-seller", Currency: testCurrency},
		pfapp.CreatePortfolioCommand{PortfolioID: "pf-buyer", UserID: "u-buyer", Currency: testCurrency},
	)
	if sellerCash != "0" {
		h.dispatch(pfapp.DepositCashCommand{PortfolioID: "pf-seller", Amount: usd(sellerCash)})
	}
	if buyerCash != "0" {
		h.dispatch(pfapp.DepositCashCommand{PortfolioID: "pf-buyer", Amount: usd(buyerCash)})
	}
	if sellerItems > 0 {
		h.dispatch(pfapp.AddItemsCommand{
			PortfolioID: "pf-seller",
			ItemID:      testItem,
			Quantity:    decimal.NewFromInt(sellerItems),
		})
	}
}

func usd(s string) money.Money {
	return money.New(testCurrency, decimal.RequireFromString(s))
}

func startCmd(txID string, tradeType txdomain.TradeType, portfolioID, quantity, price, commission string) txapp.StartTransactionCommand {
	return txapp.StartTransactionCommand{
		TransactionID: txID,
		TradeType:     tradeType,
		OrderBookID:   testBook,
		PortfolioID:   portfolioID,
		ItemID:        testItem,
		Quantity:      decimal.RequireFromString(quantity),
		PricePerItem:  usd(price),
		Commission:    usd(commission),
	}
}

func TestFullTradeSettlement(t *testing.T) {
	h := newHarness(t)
	h.setupMarket("0", "10200", 100)

	h.dispatch(
		startCmd("tx-sell", txdomain.TradeTypeSell, "pf-seller", "100", "102", "0"),
		startCmd("tx-buy", txdomain.TradeTypeBuy, "pf-buyer", "100", "102", "0"),
	)

	require.Equal(t, txdomain.StateExecuted, h.transaction("tx-sell").State())
	require.Equal(t, txdomain.StateExecuted, h.transaction("tx-buy").State())

	seller := h.portfolio("pf-seller")
	require.True(t, seller.CashTotal().Equal(decimal.NewFromInt(10200)), "seller cash %s", seller.CashTotal())
	require.True(t, seller.ItemTotal(testItem).IsZero())
	require.True(t, seller.ItemReserved(testItem).IsZero())

	buyer := h.portfolio("pf-buyer")
	require.True(t, buyer.CashTotal().IsZero(), "buyer cash %s", buyer.CashTotal())
	require.True(t, buyer.CashReserved().IsZero())
	require.True(t, buyer.ItemTotal(testItem).Equal(decimal.NewFromInt(100)))

	require.Zero(t, h.manager.ActiveCount())
}

func TestTradeSettlementWithCommission(t *testing.T) {
	h := newHarness(t)
	h.setupMarket("0", "10210", 100)

	h.dispatch(
		startCmd("tx-sell", txdomain.TradeTypeSell, "pf-seller", "100", "102", "0"),
		startCmd("tx-buy", txdomain.TradeTypeBuy, "pf-buyer", "100", "102", "10"),
	)

	buyer := h.portfolio("pf-buyer")
	require.True(t, buyer.CashTotal().IsZero(), "buyer cash %s", buyer.CashTotal())
	require.True(t, buyer.CashReserved().IsZero())
	require.True(t, buyer.ItemTotal(testItem).Equal(decimal.NewFromInt(100)))

	// 佣金结算 saga 亦应走完：两条费用创建、确认并冲销完成
	require.Zero(t, h.manager.ActiveCount())
}

func TestReservationRejectedTerminatesSaga(t *testing.T) {
	h := newHarness(t)
	h.setupMarket("0", "100", 0)

	h.dispatch(startCmd("tx-buy", txdomain.TradeTypeBuy, "pf-buyer", "100", "102", "0"))

	// 预留被拒，交易停留在 STARTED，组合分文未动
	require.Equal(t, txdomain.StateStarted, h.transaction("tx-buy").State())
	buyer := h.portfolio("pf-buyer")
	require.True(t, buyer.CashTotal().Equal(decimal.NewFromInt(100)))
	require.True(t, buyer.CashReserved().IsZero())
	require.Zero(t, h.manager.ActiveCount())
}

func TestPartialExecutionThenCancel(t *testing.T) {
	h := newHarness(t)
	h.setupMarket("0", "4080", 100)

	h.dispatch(
		startCmd("tx-sell", txdomain.TradeTypeSell, "pf-seller", "100", "102", "0"),
		startCmd("tx-buy", txdomain.TradeTypeBuy, "pf-buyer", "40", "102", "0"),
	)

	require.Equal(t, txdomain.StatePartiallyExecuted, h.transaction("tx-sell").State())
	require.Equal(t, txdomain.StateExecuted, h.transaction("tx-buy").State())

	h.dispatch(txapp.CancelTransactionCommand{TransactionID: "tx-sell"})

	require.Equal(t, txdomain.StateCancelled, h.transaction("tx-sell").State())

	// 已成交 40 股入账现金，剩余 60 股预留释放回可用持仓
	seller := h.portfolio("pf-seller")
	require.True(t, seller.CashTotal().Equal(decimal.NewFromInt(4080)), "seller cash %s", seller.CashTotal())
	require.True(t, seller.ItemTotal(testItem).Equal(decimal.NewFromInt(60)))
	require.True(t, seller.ItemReserved(testItem).IsZero())

	require.Zero(t, h.manager.ActiveCount())
}

// 买方限价 102 对上挂在 100 的卖单，按卖价成交后取消：
// 已成交部分的价差与未成交部分的预留都必须释放干净
func TestBuyCancelAfterPriceImprovedPartialFill(t *testing.T) {
	h := newHarness(t)
	h.setupMarket("0", "10200", 40)

	h.dispatch(
		startCmd("tx-sell", txdomain.TradeTypeSell, "pf-seller", "40", "100", "0"),
		startCmd("tx-buy", txdomain.TradeTypeBuy, "pf-buyer", "100", "102", "0"),
	)

	require.Equal(t, txdomain.StatePartiallyExecuted, h.transaction("tx-buy").State())

	h.dispatch(txapp.CancelTransactionCommand{TransactionID: "tx-buy"})

	require.Equal(t, txdomain.StateCancelled, h.transaction("tx-buy").State())

	// 40 股按 100 成交花掉 4000，其余 6200（含 80 价差）全部回到可用余额
	buyer := h.portfolio("pf-buyer")
	require.True(t, buyer.CashReserved().IsZero(), "buyer reserved %s", buyer.CashReserved())
	require.True(t, buyer.CashTotal().Equal(decimal.NewFromInt(6200)), "buyer cash %s", buyer.CashTotal())
	require.True(t, buyer.ItemTotal(testItem).Equal(decimal.NewFromInt(40)))

	require.Zero(t, h.manager.ActiveCount())
}

func TestDuplicateStartIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.setupMarket("0", "10200", 100)

	cmd := startCmd("tx-buy", txdomain.TradeTypeBuy, "pf-buyer", "100", "102", "0")
	h.dispatch(cmd)
	h.dispatch(cmd)

	require.Equal(t, 1, h.manager.ActiveCount())
	buyer := h.portfolio("pf-buyer")
	require.True(t, buyer.CashReserved().Equal(decimal.NewFromInt(10200)))
}
