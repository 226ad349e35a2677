// Package http 订单簿服务接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/orderbook/application"
	"github.com/wyfcoding/tradecore/internal/orderbook/domain"
)

type Handler struct {
	commands *eventsourcing.CommandBus
	repo     *eventsourcing.Repository[*domain.OrderBook]
}

func NewHandler(commands *eventsourcing.CommandBus, store eventsourcing.EventStore) *Handler {
	return &Handler{
		commands: commands,
		repo:     eventsourcing.NewRepository(store, domain.NewOrderBook),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/orderbooks")
	{
		g.POST("", h.Create)
		g.POST("/:id/orders/:orderID/cancel", h.CancelOrder)
		g.GET("/:id", h.Get)
	}
}

type CreateReq struct {
	OrderBookID string `json:"order_book_id" binding:"required"`
	ItemID      string `json:"item_id" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.CreateOrderBookCommand{
		OrderBookID: req.OrderBookID,
		ItemID:      req.ItemID,
		Currency:    money.Currency(req.Currency),
	}
	if err := h.commands.Dispatch(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"order_book_id": req.OrderBookID})
}

func (h *Handler) CancelOrder(c *gin.Context) {
	cmd := application.CancelOrderCommand{
		OrderBookID: c.Param("id"),
		OrderID:     c.Param("orderID"),
	}
	if err := h.commands.Dispatch(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) Get(c *gin.Context) {
	h.commands.Drain()

	book, err := h.repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, eventsourcing.ErrAggregateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_book_id": book.AggregateID(),
		"item_id":       book.ItemID(),
		"currency":      book.Currency(),
	})
}
