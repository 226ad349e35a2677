// Package http 交易服务接口：交易是结算流程的入口
package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/transaction/application"
	"github.com/wyfcoding/tradecore/internal/transaction/domain"
)

type Handler struct {
	commands *eventsourcing.CommandBus
	repo     *eventsourcing.Repository[*domain.Transaction]
}

func NewHandler(commands *eventsourcing.CommandBus, store eventsourcing.EventStore) *Handler {
	return &Handler{
		commands: commands,
		repo:     eventsourcing.NewRepository(store, domain.NewTransaction),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/transactions")
	{
		g.POST("", h.Start)
		g.POST("/:id/cancel", h.Cancel)
		g.GET("/:id", h.Get)
	}
}

type StartReq struct {
	TradeType   string `json:"trade_type" binding:"required"`
	OrderBookID string `json:"order_book_id" binding:"required"`
	PortfolioID string `json:"portfolio_id" binding:"required"`
	ItemID      string `json:"item_id" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	Price       string `json:"price" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	Commission  string `json:"commission"`
}

func (h *Handler) Start(c *gin.Context) {
	var req StartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	currency := money.Currency(req.Currency)
	price, err := money.FromString(currency, req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	commission := money.Zero(currency)
	if req.Commission != "" {
		if commission, err = money.FromString(currency, req.Commission); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	transactionID := fmt.Sprintf("TX%s", idgen.GenIDString())
	cmd := application.StartTransactionCommand{
		TransactionID: transactionID,
		TradeType:     domain.TradeType(req.TradeType),
		OrderBookID:   req.OrderBookID,
		PortfolioID:   req.PortfolioID,
		ItemID:        req.ItemID,
		Quantity:      quantity,
		PricePerItem:  price,
		Commission:    commission,
	}
	if err := h.commands.Dispatch(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"transaction_id": transactionID})
}

func (h *Handler) Cancel(c *gin.Context) {
	cmd := application.CancelTransactionCommand{TransactionID: c.Param("id")}
	if err := h.commands.Dispatch(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) Get(c *gin.Context) {
	h.commands.Drain()

	tx, err := h.repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, eventsourcing.ErrAggregateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transaction_id":    tx.AggregateID(),
		"state":             tx.State(),
		"trade_type":        tx.TradeType(),
		"order_book_id":     tx.OrderBookID(),
		"portfolio_id":      tx.PortfolioID(),
		"total_quantity":    tx.TotalQuantity(),
		"executed_quantity": tx.ExecutedQuantity(),
		"average_price":     tx.AveragePrice().Amount,
	})
}
