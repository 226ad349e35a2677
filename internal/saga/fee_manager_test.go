package saga_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	feeapp "github.com/wyfcoding/tradecore/internal/fee/application"
	feedomain "github.com/wyfcoding/tradecore/internal/fee/domain"
	"github.com/wyfcoding/tradecore/internal/saga"
)

// recorder 记录 saga 派发的命令序列
type recorder struct {
	commands []eventsourcing.Command
}

func (r *recorder) dispatch(_ context.Context, cmd eventsourcing.Command) {
	r.commands = append(r.commands, cmd)
}

func (r *recorder) ofType(commandType string) []eventsourcing.Command {
	var matched []eventsourcing.Command
	for _, cmd := range r.commands {
		if cmd.CommandType() == commandType {
			matched = append(matched, cmd)
		}
	}
	return matched
}

func newFeeSaga(rec *recorder) *saga.FeeManagerSaga {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return saga.NewFeeManagerSaga("feetx-1", rec.dispatch, logger)
}

func startedEvent() *feedomain.FeeSettlementStartedEvent {
	return &feedomain.FeeSettlementStartedEvent{
		BaseEvent:          eventsourcing.NewBaseEvent("feetx-1"),
		TradeTransactionID: "tx-1",
		Amount:             usd("10"),
		PayableFeeID:       "fee-payable",
		PaidFeeID:          "fee-paid",
		OffsetID:           "offset-1",
		DueDate:            time.Now().Add(24 * time.Hour),
	}
}

func TestFeeSagaHappyPath(t *testing.T) {
	rec := &recorder{}
	s := newFeeSaga(rec)
	ctx := context.Background()

	s.Handle(ctx, startedEvent())
	require.Len(t, rec.ofType("CreateFee"), 2)

	for _, feeID := range []string{"fee-payable", "fee-paid"} {
		s.Handle(ctx, &feedomain.FeeCreatedEvent{BaseEvent: eventsourcing.NewBaseEvent(feeID)})
	}
	require.Len(t, rec.ofType("ConfirmFee"), 2)

	s.Handle(ctx, &feedomain.FeeConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent("fee-payable"),
		Role:      feedomain.RolePayable,
		Amount:    usd("10"),
	})
	assert.Empty(t, rec.ofType("CreateOffset"), "offset requires both legs confirmed")

	s.Handle(ctx, &feedomain.FeeConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent("fee-paid"),
		Role:      feedomain.RolePaid,
		Amount:    usd("10"),
	})
	created := rec.ofType("CreateOffset")
	require.Len(t, created, 1)
	offset := created[0].(feeapp.CreateOffsetCommand)
	assert.Equal(t, "offset-1", offset.OffsetID)
	assert.Equal(t, "fee-payable", offset.DebitItems[0].FeeID)
	assert.Equal(t, "fee-paid", offset.CreditItems[0].FeeID)

	s.Handle(ctx, &feedomain.OffsetCreatedEvent{BaseEvent: eventsourcing.NewBaseEvent("offset-1")})
	require.Len(t, rec.ofType("OffsetFees"), 1)

	s.Handle(ctx, &feedomain.FeesOffsetedEvent{
		BaseEvent:    eventsourcing.NewBaseEvent("offset-1"),
		DebitFeeIDs:  []string{"fee-payable"},
		CreditFeeIDs: []string{"fee-paid"},
		Amount:       usd("10"),
	})
	require.Len(t, rec.ofType("MarkFeeOffseted"), 2)

	s.Handle(ctx, &feedomain.FeeOffsetedEvent{BaseEvent: eventsourcing.NewBaseEvent("fee-payable")})
	assert.False(t, s.Done())
	s.Handle(ctx, &feedomain.FeeOffsetedEvent{BaseEvent: eventsourcing.NewBaseEvent("fee-paid")})
	assert.True(t, s.Done())
}

// 两侧确认金额不一致时冲销不平，saga 取消冲销并以 OFFSET_ERROR 取消两条费用
func TestFeeSagaAmountMismatchCompensation(t *testing.T) {
	rec := &recorder{}
	s := newFeeSaga(rec)
	ctx := context.Background()

	s.Handle(ctx, startedEvent())
	s.Handle(ctx, &feedomain.FeeConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent("fee-payable"),
		Role:      feedomain.RolePayable,
		Amount:    usd("10"),
	})
	s.Handle(ctx, &feedomain.FeeConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent("fee-paid"),
		Role:      feedomain.RolePaid,
		Amount:    usd("10.6"),
	})

	created := rec.ofType("CreateOffset")
	require.Len(t, created, 1)
	offset := created[0].(feeapp.CreateOffsetCommand)
	assert.True(t, offset.CreditItems[0].Amount.Cmp(usd("10.6")) == 0)
	assert.True(t, offset.Amount.Cmp(usd("10")) == 0)

	s.Handle(ctx, &feedomain.OffsetAmountNotMatchedEvent{
		BaseEvent:   eventsourcing.NewBaseEvent("offset-1"),
		Reason:      feedomain.ReasonAmountNotMatched,
		Expected:    usd("10"),
		DebitTotal:  usd("10"),
		CreditTotal: usd("10.6"),
	})
	require.Len(t, rec.ofType("CancelOffset"), 1)

	s.Handle(ctx, &feedomain.OffsetCancelledEvent{BaseEvent: eventsourcing.NewBaseEvent("offset-1")})
	cancels := rec.ofType("CancelFee")
	require.Len(t, cancels, 2)
	for _, cmd := range cancels {
		assert.Equal(t, feedomain.ReasonOffsetError, cmd.(feeapp.CancelFeeCommand).Reason)
	}

	s.Handle(ctx, &feedomain.FeeCancelledEvent{BaseEvent: eventsourcing.NewBaseEvent("fee-payable"), Reason: feedomain.ReasonOffsetError})
	s.Handle(ctx, &feedomain.FeeCancelledEvent{BaseEvent: eventsourcing.NewBaseEvent("fee-paid"), Reason: feedomain.ReasonOffsetError})
	assert.True(t, s.Done())
}

func TestFeeSagaIgnoresUnrelatedFeeEvents(t *testing.T) {
	rec := &recorder{}
	s := newFeeSaga(rec)
	ctx := context.Background()

	s.Handle(ctx, startedEvent())
	before := len(rec.commands)

	s.Handle(ctx, &feedomain.FeeConfirmedEvent{
		BaseEvent: eventsourcing.NewBaseEvent("fee-other"),
		Role:      feedomain.RolePayable,
		Amount:    usd("10"),
	})
	assert.Len(t, rec.commands, before)
	assert.False(t, s.Done())
}
