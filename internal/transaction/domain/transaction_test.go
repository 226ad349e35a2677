package domain_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/transaction/domain"
)

const usd = money.Currency("USD")

func usdAmount(s string) money.Money {
	return money.New(usd, decimal.RequireFromString(s))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func startedTransaction(t *testing.T, quantity string) *domain.Transaction {
	t.Helper()
	tx := domain.NewTransaction()
	err := tx.Start("tx-1", domain.TradeTypeBuy, "book-1", "pf-1", "AAPL",
		dec(quantity), usdAmount("20"), usdAmount("0"))
	require.NoError(t, err)
	return tx
}

func confirmedTransaction(t *testing.T, quantity string) *domain.Transaction {
	t.Helper()
	tx := startedTransaction(t, quantity)
	require.NoError(t, tx.Confirm(context.Background()))
	tx.ClearUncommitted()
	return tx
}

func TestLifecycleToFullExecution(t *testing.T) {
	ctx := context.Background()
	tx := startedTransaction(t, "100")
	require.Equal(t, domain.StateStarted, tx.State())

	require.NoError(t, tx.Confirm(ctx))
	require.Equal(t, domain.StateConfirmed, tx.State())

	require.NoError(t, tx.Execute(ctx, dec("40"), usdAmount("20")))
	require.Equal(t, domain.StatePartiallyExecuted, tx.State())
	require.True(t, tx.ExecutedQuantity().Equal(dec("40")))

	require.NoError(t, tx.Execute(ctx, dec("60"), usdAmount("20")))
	require.Equal(t, domain.StateExecuted, tx.State())
	require.True(t, tx.ExecutedQuantity().Equal(dec("100")))
}

// 50 股 @10 加 50 股 @20，加权均价 15
func TestVolumeWeightedAveragePrice(t *testing.T) {
	ctx := context.Background()
	tx := confirmedTransaction(t, "100")

	require.NoError(t, tx.Execute(ctx, dec("50"), usdAmount("10")))
	require.True(t, tx.AveragePrice().Cmp(usdAmount("10")) == 0)

	require.NoError(t, tx.Execute(ctx, dec("50"), usdAmount("20")))
	require.Equal(t, domain.StateExecuted, tx.State())
	require.True(t, tx.AveragePrice().Cmp(usdAmount("15")) == 0, "average %s", tx.AveragePrice())

	executed := tx.Uncommitted()[len(tx.Uncommitted())-1].(*domain.TransactionExecutedEvent)
	assert.True(t, executed.AveragePrice.Cmp(usdAmount("15")) == 0)
}

func TestExecutionOvershootRejected(t *testing.T) {
	ctx := context.Background()
	tx := confirmedTransaction(t, "100")

	require.NoError(t, tx.Execute(ctx, dec("80"), usdAmount("20")))
	err := tx.Execute(ctx, dec("30"), usdAmount("20"))
	assert.ErrorIs(t, err, domain.ErrExecutionOvershoot)

	// 违约不改变状态，剩余 20 仍可正常执行
	require.True(t, tx.ExecutedQuantity().Equal(dec("80")))
	require.NoError(t, tx.Execute(ctx, dec("20"), usdAmount("20")))
	require.Equal(t, domain.StateExecuted, tx.State())
}

func TestCancelRecordsRemainder(t *testing.T) {
	ctx := context.Background()
	tx := confirmedTransaction(t, "100")
	require.NoError(t, tx.Execute(ctx, dec("40"), usdAmount("20")))
	tx.ClearUncommitted()

	require.NoError(t, tx.Cancel(ctx))
	require.Equal(t, domain.StateCancelled, tx.State())

	events := tx.Uncommitted()
	require.Len(t, events, 1)
	cancelled := events[0].(*domain.TransactionCancelledEvent)
	assert.True(t, cancelled.RemainingQuantity.Equal(dec("60")))
	assert.True(t, cancelled.ExecutedQuantity.Equal(dec("40")))
}

func TestIllegalTransitions(t *testing.T) {
	ctx := context.Background()

	tx := startedTransaction(t, "100")
	// 未确认不能执行
	assert.ErrorIs(t, tx.Execute(ctx, dec("10"), usdAmount("20")), domain.ErrIllegalStateTransition)

	done := confirmedTransaction(t, "10")
	require.NoError(t, done.Execute(ctx, dec("10"), usdAmount("20")))
	// 终态不能取消也不能再确认
	assert.ErrorIs(t, done.Cancel(ctx), domain.ErrIllegalStateTransition)
	assert.ErrorIs(t, done.Confirm(ctx), domain.ErrIllegalStateTransition)
}

func TestStartValidation(t *testing.T) {
	tx := domain.NewTransaction()
	err := tx.Start("tx-1", "SHORT", "book-1", "pf-1", "AAPL", dec("1"), usdAmount("1"), usdAmount("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)

	require.NoError(t, tx.Start("tx-1", domain.TradeTypeSell, "book-1", "pf-1", "AAPL", dec("1"), usdAmount("1"), usdAmount("0")))
	assert.ErrorIs(t,
		tx.Start("tx-1", domain.TradeTypeSell, "book-1", "pf-1", "AAPL", dec("1"), usdAmount("1"), usdAmount("0")),
		domain.ErrTransactionAlreadyStarted)
}

// 回放与在线执行得到相同的均价与数量
func TestReplayRestoresProgress(t *testing.T) {
	ctx := context.Background()
	tx := startedTransaction(t, "100")
	require.NoError(t, tx.Confirm(ctx))
	require.NoError(t, tx.Execute(ctx, dec("50"), usdAmount("10")))
	require.NoError(t, tx.Execute(ctx, dec("30"), usdAmount("20")))

	replayed := domain.NewTransaction()
	for _, e := range tx.Uncommitted() {
		replayed.Apply(e)
	}

	require.Equal(t, domain.StatePartiallyExecuted, replayed.State())
	require.True(t, replayed.ExecutedQuantity().Equal(dec("80")))
	require.True(t, replayed.AveragePrice().Cmp(tx.AveragePrice()) == 0)
}
