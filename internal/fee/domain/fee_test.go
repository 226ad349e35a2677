package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/fee/domain"
	"github.com/wyfcoding/tradecore/internal/money"
)

const usd = money.Currency("USD")

func usdAmount(s string) money.Money {
	return money.New(usd, decimal.RequireFromString(s))
}

func newFee(t *testing.T, amount string) *domain.Fee {
	t.Helper()
	fee := domain.NewFee()
	require.NoError(t, fee.Create("fee-1", domain.RolePayable, usdAmount(amount), time.Now().Add(24*time.Hour), "tx-1"))
	return fee
}

func TestFeeLifecycle(t *testing.T) {
	ctx := context.Background()
	fee := newFee(t, "10")
	require.Equal(t, domain.FeeStatusPending, fee.Status())

	require.NoError(t, fee.Confirm(ctx))
	require.Equal(t, domain.FeeStatusConfirmed, fee.Status())

	require.NoError(t, fee.MarkOffseted(ctx, "offset-1"))
	require.Equal(t, domain.FeeStatusOffset, fee.Status())

	// 终态后一切操作非法
	assert.ErrorIs(t, fee.Cancel(ctx, domain.ReasonOffsetError), domain.ErrFeeIllegalTransition)
	assert.ErrorIs(t, fee.Confirm(ctx), domain.ErrFeeIllegalTransition)
}

func TestFeeCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fee := newFee(t, "10")
	require.NoError(t, fee.Confirm(ctx))
	fee.ClearUncommitted()

	require.NoError(t, fee.Cancel(ctx, domain.ReasonOffsetError))
	require.Equal(t, domain.FeeStatusCancelled, fee.Status())
	require.Len(t, fee.Uncommitted(), 1)

	require.NoError(t, fee.Cancel(ctx, domain.ReasonOffsetError))
	require.Len(t, fee.Uncommitted(), 1, "duplicate cancel raises nothing")
}

func TestFeeCannotOffsetBeforeConfirm(t *testing.T) {
	fee := newFee(t, "10")
	assert.ErrorIs(t, fee.MarkOffseted(context.Background(), "offset-1"), domain.ErrFeeIllegalTransition)
}

func TestFeeCreateValidation(t *testing.T) {
	fee := domain.NewFee()
	err := fee.Create("fee-1", domain.RolePayable, usdAmount("0"), time.Now(), "tx-1")
	assert.ErrorIs(t, err, domain.ErrInvalidFee)

	err = fee.Create("fee-1", domain.RolePayable, usdAmount("10"), time.Now(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidFee)
}

func newOffset(t *testing.T, debit, credit, amount string) *domain.Offset {
	t.Helper()
	offset := domain.NewOffset()
	require.NoError(t, offset.Create("offset-1", "feetx-1",
		[]domain.FeeItem{{FeeID: "fee-payable", Amount: usdAmount(debit)}},
		[]domain.FeeItem{{FeeID: "fee-paid", Amount: usdAmount(credit)}},
		usdAmount(amount)))
	offset.ClearUncommitted()
	return offset
}

func TestOffsetBalancedAmounts(t *testing.T) {
	ctx := context.Background()
	offset := newOffset(t, "10", "10", "10")

	require.NoError(t, offset.OffsetFees(ctx))
	require.Equal(t, domain.OffsetStatusOffset, offset.Status())

	events := offset.Uncommitted()
	require.Len(t, events, 1)
	offseted := events[0].(*domain.FeesOffsetedEvent)
	assert.Equal(t, []string{"fee-payable"}, offseted.DebitFeeIDs)
	assert.Equal(t, []string{"fee-paid"}, offseted.CreditFeeIDs)
	assert.True(t, offseted.Amount.Cmp(usdAmount("10")) == 0)
}

// 贷方 10.6 对期望 10：不平以事件表达而非错误
func TestOffsetAmountNotMatched(t *testing.T) {
	ctx := context.Background()
	offset := newOffset(t, "10", "10.6", "10")

	require.NoError(t, offset.OffsetFees(ctx))
	require.Equal(t, domain.OffsetStatusNotMatched, offset.Status())

	events := offset.Uncommitted()
	require.Len(t, events, 1)
	mismatch := events[0].(*domain.OffsetAmountNotMatchedEvent)
	assert.Equal(t, domain.ReasonAmountNotMatched, mismatch.Reason)
	assert.True(t, mismatch.Expected.Cmp(usdAmount("10")) == 0)
	assert.True(t, mismatch.CreditTotal.Cmp(usdAmount("10.6")) == 0)

	// 不平后只能取消
	offset.ClearUncommitted()
	assert.ErrorIs(t, offset.OffsetFees(ctx), domain.ErrOffsetIllegalTransition)
	require.NoError(t, offset.Cancel(ctx))
	require.Equal(t, domain.OffsetStatusCancelled, offset.Status())
}

func TestOffsetCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	offset := newOffset(t, "10", "10", "10")

	require.NoError(t, offset.Cancel(ctx))
	offset.ClearUncommitted()
	require.NoError(t, offset.Cancel(ctx))
	assert.Empty(t, offset.Uncommitted())
}

func TestFeeSettlementStartFixesIdentifiers(t *testing.T) {
	settlement := domain.NewFeeSettlement()
	due := time.Now().Add(48 * time.Hour)
	require.NoError(t, settlement.Start("feetx-1", "tx-1", usdAmount("10"), "fee-payable", "fee-paid", "offset-1", due))

	events := settlement.Uncommitted()
	require.Len(t, events, 1)
	started := events[0].(*domain.FeeSettlementStartedEvent)
	assert.Equal(t, "tx-1", started.TradeTransactionID)
	assert.Equal(t, "fee-payable", started.PayableFeeID)
	assert.Equal(t, "fee-paid", started.PaidFeeID)
	assert.Equal(t, "offset-1", started.OffsetID)

	assert.ErrorIs(t,
		settlement.Start("feetx-1", "tx-1", usdAmount("10"), "fee-payable", "fee-paid", "offset-1", due),
		domain.ErrSettlementAlreadyStarted)
}
