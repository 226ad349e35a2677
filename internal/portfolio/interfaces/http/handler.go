// Package http 组合服务接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/internal/money"
	"github.com/wyfcoding/tradecore/internal/portfolio/application"
	"github.com/wyfcoding/tradecore/internal/portfolio/domain"
)

type Handler struct {
	commands *eventsourcing.CommandBus
	repo     *eventsourcing.Repository[*domain.Portfolio]
}

func NewHandler(commands *eventsourcing.CommandBus, store eventsourcing.EventStore) *Handler {
	return &Handler{
		commands: commands,
		repo:     eventsourcing.NewRepository(store, domain.NewPortfolio),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/portfolios")
	{
		g.POST("", h.Create)
		g.POST("/:id/deposits", h.Deposit)
		g.POST("/:id/withdrawals", h.Withdraw)
		g.POST("/:id/items", h.AddItems)
		g.GET("/:id", h.Get)
	}
}

type CreateReq struct {
	PortfolioID string `json:"portfolio_id" binding:"required"`
	UserID      string `json:"user_id" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.CreatePortfolioCommand{
		PortfolioID: req.PortfolioID,
		UserID:      req.UserID,
		Currency:    money.Currency(req.Currency),
	}
	if err := h.commands.Dispatch(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"portfolio_id": req.PortfolioID})
}

type CashReq struct {
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

func (h *Handler) Deposit(c *gin.Context) {
	h.cashCommand(c, func(portfolioID string, amount money.Money) eventsourcing.Command {
		return application.DepositCashCommand{PortfolioID: portfolioID, Amount: amount}
	})
}

func (h *Handler) Withdraw(c *gin.Context) {
	h.cashCommand(c, func(portfolioID string, amount money.Money) eventsourcing.Command {
		return application.WithdrawCashCommand{PortfolioID: portfolioID, Amount: amount}
	})
}

func (h *Handler) cashCommand(c *gin.Context, build func(string, money.Money) eventsourcing.Command) {
	var req CashReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := money.FromString(money.Currency(req.Currency), req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.commands.Dispatch(c.Request.Context(), build(c.Param("id"), amount)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

type AddItemsReq struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

func (h *Handler) AddItems(c *gin.Context) {
	var req AddItemsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.AddItemsCommand{
		PortfolioID: c.Param("id"),
		ItemID:      req.ItemID,
		Quantity:    quantity,
	}
	if err := h.commands.Dispatch(c.Request.Context(), cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *Handler) Get(c *gin.Context) {
	// 命令异步处理，先排空在途命令再读，保证读到自己的写
	h.commands.Drain()

	p, err := h.repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, eventsourcing.ErrAggregateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portfolio_id":  p.AggregateID(),
		"user_id":       p.UserID(),
		"currency":      p.Currency(),
		"cash_total":    p.CashTotal(),
		"cash_reserved": p.CashReserved(),
	})
}
