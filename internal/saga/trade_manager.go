package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	feeapp "github.com/wyfcoding/tradecore/internal/fee/application"
	"github.com/wyfcoding/tradecore/internal/money"
	obapp "github.com/wyfcoding/tradecore/internal/orderbook/application"
	obdomain "github.com/wyfcoding/tradecore/internal/orderbook/domain"
	pfapp "github.com/wyfcoding/tradecore/internal/portfolio/application"
	pfdomain "github.com/wyfcoding/tradecore/internal/portfolio/domain"
	txapp "github.com/wyfcoding/tradecore/internal/transaction/application"
	txdomain "github.com/wyfcoding/tradecore/internal/transaction/domain"
)

// 佣金结算的默认付款期限
const feeDueIn = 30 * 24 * time.Hour

// DispatchFunc saga 派发后续命令的出口
type DispatchFunc func(ctx context.Context, cmd eventsourcing.Command)

type tradeState string

const (
	tradeAwaitingReservation tradeState = "AWAITING_RESERVATION"
	tradeAwaitingConfirm     tradeState = "AWAITING_CONFIRMATION"
	tradeTrading             tradeState = "TRADING"
	tradeCompleted           tradeState = "COMPLETED"
)

// TradeManagerSaga 单笔交易的结算编排。
// 预留 -> 确认交易 -> 挂单 -> 随成交逐笔结算 -> 清理残余预留，
// 取消时按剩余量释放预留作为补偿
type TradeManagerSaga struct {
	transactionID string
	state         tradeState
	done          bool

	tradeType    txdomain.TradeType
	orderBookID  string
	portfolioID  string
	itemID       string
	quantity     decimal.Decimal
	pricePerItem money.Money
	commission   money.Money
	orderID      string

	dispatch DispatchFunc
	logger   *slog.Logger
}

// NewTradeManagerSaga 创建交易编排实例
func NewTradeManagerSaga(transactionID string, dispatch DispatchFunc, logger *slog.Logger) *TradeManagerSaga {
	return &TradeManagerSaga{
		transactionID: transactionID,
		state:         tradeAwaitingReservation,
		dispatch:      dispatch,
		logger:        logger.With("saga", "trade_manager", "transaction_id", transactionID),
	}
}

// Done 流程是否已终结
func (s *TradeManagerSaga) Done() bool { return s.done }

// Handle 处理一条相关事件并派发下一步命令
func (s *TradeManagerSaga) Handle(ctx context.Context, event eventsourcing.DomainEvent) {
	switch e := event.(type) {
	case *txdomain.TransactionStartedEvent:
		s.onStarted(ctx, e)
	case *pfdomain.ItemReservedEvent:
		s.confirmTransaction(ctx)
	case *pfdomain.CashReservedEvent:
		s.confirmTransaction(ctx)
	case *pfdomain.ItemReservationRejectedEvent:
		s.reject(string(e.Reason))
	case *pfdomain.CashReservationRejectedEvent:
		s.reject(string(e.Reason))
	case *txdomain.TransactionConfirmedEvent:
		s.placeOrder(ctx)
	case *obdomain.TradeExecutedEvent:
		s.onTradeExecuted(ctx, e)
	case *txdomain.TransactionPartiallyExecutedEvent:
		s.settleSlice(ctx, e.Quantity, e.Price, false)
	case *txdomain.TransactionExecutedEvent:
		s.settleSlice(ctx, e.Quantity, e.Price, true)
		s.complete(ctx)
	case *txdomain.TransactionCancelledEvent:
		s.onCancelled(ctx, e)
	}
}

func (s *TradeManagerSaga) onStarted(ctx context.Context, e *txdomain.TransactionStartedEvent) {
	s.tradeType = e.TradeType
	s.orderBookID = e.OrderBookID
	s.portfolioID = e.PortfolioID
	s.itemID = e.ItemID
	s.quantity = e.TotalQuantity
	s.pricePerItem = e.PricePerItem
	s.commission = e.Commission
	s.state = tradeAwaitingConfirm

	switch s.tradeType {
	case txdomain.TradeTypeSell:
		s.dispatch(ctx, pfapp.ReserveItemsCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
			ItemID:        s.itemID,
			Quantity:      s.quantity,
			Commission:    decimal.Zero,
		})
	case txdomain.TradeTypeBuy:
		s.dispatch(ctx, pfapp.ReserveCashCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
			Amount:        s.pricePerItem.Mul(s.quantity),
			Commission:    s.commission,
		})
	}
}

func (s *TradeManagerSaga) confirmTransaction(ctx context.Context) {
	if s.state != tradeAwaitingConfirm {
		return
	}
	s.dispatch(ctx, txapp.ConfirmTransactionCommand{TransactionID: s.transactionID})
}

// reject 预留被拒绝，交易无法成立，流程直接终结
func (s *TradeManagerSaga) reject(reason string) {
	s.logger.Info("reservation rejected, terminating", "reason", reason)
	s.state = tradeCompleted
	s.done = true
}

func (s *TradeManagerSaga) placeOrder(ctx context.Context) {
	if s.state != tradeAwaitingConfirm {
		return
	}
	s.state = tradeTrading
	s.orderID = fmt.Sprintf("ORD%s", idgen.GenIDString())

	switch s.tradeType {
	case txdomain.TradeTypeSell:
		s.dispatch(ctx, obapp.PlaceSellOrderCommand{
			OrderBookID:   s.orderBookID,
			OrderID:       s.orderID,
			TransactionID: s.transactionID,
			PortfolioID:   s.portfolioID,
			Quantity:      s.quantity,
			Price:         s.pricePerItem,
		})
	case txdomain.TradeTypeBuy:
		s.dispatch(ctx, obapp.PlaceBuyOrderCommand{
			OrderBookID:   s.orderBookID,
			OrderID:       s.orderID,
			TransactionID: s.transactionID,
			PortfolioID:   s.portfolioID,
			Quantity:      s.quantity,
			Price:         s.pricePerItem,
		})
	}
}

// onTradeExecuted 订单簿撮合出一笔成交，把属于本交易的份额记入交易聚合
func (s *TradeManagerSaga) onTradeExecuted(ctx context.Context, e *obdomain.TradeExecutedEvent) {
	if s.state != tradeTrading {
		return
	}
	if e.BuyTransactionID != s.transactionID && e.SellTransactionID != s.transactionID {
		return
	}
	s.dispatch(ctx, txapp.ExecuteTransactionCommand{
		TransactionID: s.transactionID,
		Quantity:      e.Quantity,
		Price:         e.Price,
	})
}

// settleSlice 逐笔结算一个执行切片：确认对应预留并入账对价。
// 买方的佣金只随最后一个切片一并确认
func (s *TradeManagerSaga) settleSlice(ctx context.Context, quantity decimal.Decimal, price money.Money, final bool) {
	if s.state != tradeTrading {
		return
	}
	proceeds := price.Mul(quantity)

	switch s.tradeType {
	case txdomain.TradeTypeSell:
		s.dispatch(ctx, pfapp.ConfirmItemReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
			Quantity:      quantity,
			Commission:    decimal.Zero,
		})
		s.dispatch(ctx, pfapp.DepositCashCommand{
			PortfolioID: s.portfolioID,
			Amount:      proceeds,
		})
	case txdomain.TradeTypeBuy:
		commission := money.Zero(s.commission.Currency)
		if final {
			commission = s.commission
		}
		s.dispatch(ctx, pfapp.ConfirmCashReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
			Amount:        proceeds,
			Commission:    commission,
		})
		s.dispatch(ctx, pfapp.AddItemsCommand{
			PortfolioID: s.portfolioID,
			ItemID:      s.itemID,
			Quantity:    quantity,
		})
	}
}

// complete 交易完全执行：释放残余预留（限价优于挂单价成交时的差额），
// 有佣金则启动费用结算
func (s *TradeManagerSaga) complete(ctx context.Context) {
	switch s.tradeType {
	case txdomain.TradeTypeSell:
		s.dispatch(ctx, pfapp.ClearItemReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
		})
	case txdomain.TradeTypeBuy:
		s.dispatch(ctx, pfapp.ClearCashReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
		})
	}

	if s.commission.IsPositive() {
		s.dispatch(ctx, feeapp.StartFeeSettlementCommand{
			FeeTransactionID:   fmt.Sprintf("FEETX%s", idgen.GenIDString()),
			TradeTransactionID: s.transactionID,
			Amount:             s.commission,
			PayableFeeID:       fmt.Sprintf("FEE%s", idgen.GenIDString()),
			PaidFeeID:          fmt.Sprintf("FEE%s", idgen.GenIDString()),
			OffsetID:           fmt.Sprintf("OFS%s", idgen.GenIDString()),
			DueDate:            time.Now().Add(feeDueIn),
		})
	}

	s.state = tradeCompleted
	s.done = true
	s.logger.Info("trade settled", "order_id", s.orderID)
}

// onCancelled 交易取消补偿：按剩余量释放预留，再清掉预留记录上的全部残余。
// 已执行切片按成交价确认，限价优于成交价时差额仍挂在预留里，只靠剩余量算不干净。
// 佣金从未被部分确认过，取消时一并释放
func (s *TradeManagerSaga) onCancelled(ctx context.Context, e *txdomain.TransactionCancelledEvent) {
	if s.state == tradeCompleted {
		return
	}

	switch s.tradeType {
	case txdomain.TradeTypeSell:
		s.dispatch(ctx, pfapp.CancelItemReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
			Quantity:      e.RemainingQuantity,
			Commission:    decimal.Zero,
		})
		s.dispatch(ctx, pfapp.ClearItemReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
		})
	case txdomain.TradeTypeBuy:
		s.dispatch(ctx, pfapp.CancelCashReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
			Amount:        s.pricePerItem.Mul(e.RemainingQuantity),
			Commission:    s.commission,
		})
		s.dispatch(ctx, pfapp.ClearCashReservationCommand{
			PortfolioID:   s.portfolioID,
			TransactionID: s.transactionID,
		})
	}

	if s.orderID != "" {
		s.dispatch(ctx, obapp.CancelOrderCommand{
			OrderBookID: s.orderBookID,
			OrderID:     s.orderID,
		})
	}

	s.state = tradeCompleted
	s.done = true
	s.logger.Info("trade cancelled", "remaining", e.RemainingQuantity.String(), "executed", e.ExecutedQuantity.String())
}
