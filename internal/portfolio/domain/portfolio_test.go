package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/portfolio/domain"
)

const btc = money.Currency("BTC")

func newPortfolio(t *testing.T) *domain.Portfolio {
	t.Helper()
	p := domain.NewPortfolio()
	require.NoError(t, p.Create("pf-1", "user-1", btc))
	p.ClearUncommitted()
	return p
}

func amount(s string) money.Money {
	return money.New(btc, decimal.RequireFromString(s))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// lastEvent 返回最后一条未提交事件并清空
func lastEvent(t *testing.T, p *domain.Portfolio) any {
	t.Helper()
	events := p.Uncommitted()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	p.ClearUncommitted()
	return last
}

func TestDepositAndWithdraw(t *testing.T) {
	p := newPortfolio(t)

	require.NoError(t, p.Deposit(amount("400")))
	require.True(t, p.CashTotal().Equal(dec("400")))

	require.NoError(t, p.Withdraw(amount("150")))
	require.True(t, p.CashTotal().Equal(dec("250")))

	// 出账超过可用余额是硬错误，状态不变
	err := p.Withdraw(amount("300"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.True(t, p.CashTotal().Equal(dec("250")))
}

func TestReserveCashRejectedWithActualAvailable(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("400")))
	p.ClearUncommitted()

	require.NoError(t, p.ReserveCash("tx-1", amount("205"), amount("0")))
	reserved, ok := lastEvent(t, p).(*domain.CashReservedEvent)
	require.True(t, ok)
	assert.True(t, reserved.Amount.Cmp(amount("205")) == 0)
	require.True(t, p.CashReserved().Equal(dec("205")))

	// 可用只剩 195，再预留 205 被拒并回报实际可用量
	require.NoError(t, p.ReserveCash("tx-2", amount("205"), amount("0")))
	rejected, ok := lastEvent(t, p).(*domain.CashReservationRejectedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonNotEnough, rejected.Reason)
	assert.True(t, rejected.Available.Cmp(amount("195")) == 0, "available %s", rejected.Available)
	require.True(t, p.CashReserved().Equal(dec("205")), "rejection must not change reserved")
}

func TestReserveCashOnEmptyPortfolio(t *testing.T) {
	p := newPortfolio(t)

	require.NoError(t, p.ReserveCash("tx-1", amount("10"), amount("0")))
	rejected, ok := lastEvent(t, p).(*domain.CashReservationRejectedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonNotAvailable, rejected.Reason)
	assert.True(t, rejected.Available.IsZero())
}

func TestReserveIncludesCommission(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("100")))

	// 金额 95 + 佣金 10 超出总额 100
	require.NoError(t, p.ReserveCash("tx-1", amount("95"), amount("10")))
	rejected, ok := lastEvent(t, p).(*domain.CashReservationRejectedEvent)
	require.True(t, ok)
	assert.True(t, rejected.Requested.Cmp(amount("105")) == 0)
}

func TestConfirmReservationInSlices(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("100")))
	require.NoError(t, p.ReserveCash("tx-1", amount("90"), amount("10")))

	require.NoError(t, p.ConfirmCashReservation("tx-1", amount("40"), amount("0")))
	require.True(t, p.CashTotal().Equal(dec("60")))
	require.True(t, p.CashReserved().Equal(dec("60")))

	require.NoError(t, p.ConfirmCashReservation("tx-1", amount("50"), amount("10")))
	require.True(t, p.CashTotal().IsZero())
	require.True(t, p.CashReserved().IsZero())

	// 预留记录已结清，重复确认幂等跳过
	p.ClearUncommitted()
	require.NoError(t, p.ConfirmCashReservation("tx-1", amount("1"), amount("0")))
	assert.Empty(t, p.Uncommitted())
}

func TestConfirmBeyondReservationIsContractViolation(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("100")))
	require.NoError(t, p.ReserveCash("tx-1", amount("50"), amount("0")))
	p.ClearUncommitted()

	err := p.ConfirmCashReservation("tx-1", amount("60"), amount("0"))
	assert.ErrorIs(t, err, domain.ErrReservationExceeded)
	assert.Empty(t, p.Uncommitted())
	require.True(t, p.CashReserved().Equal(dec("50")))
}

func TestCancelReservationReturnsToAvailable(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("100")))
	require.NoError(t, p.ReserveCash("tx-1", amount("60"), amount("5")))

	require.NoError(t, p.CancelCashReservation("tx-1", amount("60"), amount("5")))
	require.True(t, p.CashTotal().Equal(dec("100")), "cancel keeps total")
	require.True(t, p.CashReserved().IsZero())

	// 可用余额恢复，可再次预留
	require.NoError(t, p.ReserveCash("tx-2", amount("100"), amount("0")))
	_, ok := lastEvent(t, p).(*domain.CashReservedEvent)
	require.True(t, ok)
}

// 确认按成交额进行而取消按委托价计算时，记录上会留下差额，Clear 负责收尾
func TestCancelKeepsResidualClearable(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("10200")))
	require.NoError(t, p.ReserveCash("tx-1", amount("10200"), amount("0")))
	require.NoError(t, p.ConfirmCashReservation("tx-1", amount("4000"), amount("0")))

	require.NoError(t, p.CancelCashReservation("tx-1", amount("6120"), amount("0")))
	require.True(t, p.CashReserved().Equal(dec("80")), "residual %s", p.CashReserved())

	require.NoError(t, p.ClearCashReservation("tx-1"))
	require.True(t, p.CashReserved().IsZero())
	require.True(t, p.CashTotal().Equal(dec("6200")))
}

func TestClearReleasesResidualOnly(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("102")))
	require.NoError(t, p.ReserveCash("tx-1", amount("102"), amount("0")))
	require.NoError(t, p.ConfirmCashReservation("tx-1", amount("100"), amount("0")))
	p.ClearUncommitted()

	require.NoError(t, p.ClearCashReservation("tx-1"))
	cleared, ok := lastEvent(t, p).(*domain.CashReservedClearedEvent)
	require.True(t, ok)
	assert.True(t, cleared.Residual.Cmp(amount("2")) == 0)
	require.True(t, p.CashTotal().Equal(dec("2")))
	require.True(t, p.CashReserved().IsZero())

	// 无残余时清理是空操作
	require.NoError(t, p.ClearCashReservation("tx-1"))
	assert.Empty(t, p.Uncommitted())
}

func TestDuplicateReserveIsIdempotent(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("100")))
	require.NoError(t, p.ReserveCash("tx-1", amount("50"), amount("0")))
	p.ClearUncommitted()

	require.NoError(t, p.ReserveCash("tx-1", amount("50"), amount("0")))
	assert.Empty(t, p.Uncommitted())
	require.True(t, p.CashReserved().Equal(dec("50")))
}

func TestItemReservationLifecycle(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.AddItems("AAPL", dec("100")))

	require.NoError(t, p.ReserveItems("tx-1", "AAPL", dec("100"), decimal.Zero))
	require.True(t, p.ItemReserved("AAPL").Equal(dec("100")))

	require.NoError(t, p.ConfirmItemReservation("tx-1", dec("40"), decimal.Zero))
	require.True(t, p.ItemTotal("AAPL").Equal(dec("60")))
	require.True(t, p.ItemReserved("AAPL").Equal(dec("60")))

	require.NoError(t, p.CancelItemReservation("tx-1", dec("60"), decimal.Zero))
	require.True(t, p.ItemTotal("AAPL").Equal(dec("60")))
	require.True(t, p.ItemReserved("AAPL").IsZero())
}

func TestReserveItemsRejectedForUnknownItem(t *testing.T) {
	p := newPortfolio(t)

	require.NoError(t, p.ReserveItems("tx-1", "AAPL", dec("10"), decimal.Zero))
	rejected, ok := lastEvent(t, p).(*domain.ItemReservationRejectedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonNotAvailable, rejected.Reason)
}

func TestCurrencyMismatchIsHardError(t *testing.T) {
	p := newPortfolio(t)

	err := p.Deposit(money.New("USD", decimal.NewFromInt(10)))
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

// 回放事件流重建的组合与在线状态完全一致
func TestReplayRebuildsBalances(t *testing.T) {
	p := newPortfolio(t)
	require.NoError(t, p.Deposit(amount("400")))
	require.NoError(t, p.ReserveCash("tx-1", amount("205"), amount("0")))
	require.NoError(t, p.ConfirmCashReservation("tx-1", amount("100"), amount("0")))

	replayed := domain.NewPortfolio()
	replayed.Apply(&domain.PortfolioCreatedEvent{UserID: "user-1", Currency: btc})
	for _, e := range p.Uncommitted() {
		replayed.Apply(e)
	}

	require.True(t, replayed.CashTotal().Equal(p.CashTotal()))
	require.True(t, replayed.CashReserved().Equal(p.CashReserved()))
}
