package handler

import (
	"net/http"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/service"
	"github.com/dushixiang/ballast/pkg/nostd"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JournalHandler 交易日志HTTP处理器
type JournalHandler struct {
	journalService *service.JournalService
	logger         *zap.Logger
}

// NewJournalHandler 创建交易日志处理器
func NewJournalHandler(journalService *service.JournalService, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
		logger:         logger,
	}
}

// CreateTradeRequest 录入交易请求
type CreateTradeRequest struct {
	Symbol        string     `json:"symbol" validate:"required,max=20"`
	Side          string     `json:"side" validate:"required,oneof=long short"`
	EntryPrice    float64    `json:"entry_price" validate:"required,gt=0"`
	Quantity      float64    `json:"quantity" validate:"required,gt=0"`
	Leverage      int        `json:"leverage" validate:"omitempty,gte=1,lte=125"`
	StopLoss      *float64   `json:"stop_loss" validate:"omitempty,gt=0"`
	TakeProfit    *float64   `json:"take_profit" validate:"omitempty,gt=0"`
	Tags          []string   `json:"tags"`
	EmotionBefore string     `json:"emotion_before" validate:"omitempty,max=20"`
	EmotionDuring string     `json:"emotion_during" validate:"omitempty,max=20"`
	EntryAt       *time.Time `json:"entry_at"`
}

// CloseTradeRequest 平仓请求
type CloseTradeRequest struct {
	ExitPrice float64    `json:"exit_price" validate:"required,gt=0"`
	ExitAt    *time.Time `json:"exit_at"`
	Pnl       *float64   `json:"pnl"`
}

// CreateTrade 录入一笔交易
// POST /api/journal/trades
func (h *JournalHandler) CreateTrade(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateTradeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	trade := &models.Trade{
		Symbol:        req.Symbol,
		Side:          req.Side,
		EntryPrice:    req.EntryPrice,
		Quantity:      req.Quantity,
		Leverage:      req.Leverage,
		StopLoss:      req.StopLoss,
		TakeProfit:    req.TakeProfit,
		Tags:          req.Tags,
		EmotionBefore: req.EmotionBefore,
		EmotionDuring: req.EmotionDuring,
	}
	if req.EntryAt != nil {
		trade.EntryAt = *req.EntryAt
	}

	if err := h.journalService.CreateTrade(ctx, trade); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, trade)
}

// ListTrades 获取最近的交易记录
// GET /api/journal/trades?limit=20
func (h *JournalHandler) ListTrades(c echo.Context) error {
	ctx := c.Request().Context()

	limit := nostd.QueryInt(c, "limit", 20)
	trades, err := h.journalService.ListTrades(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// ListOpenTrades 获取持仓中的交易
// GET /api/journal/trades/open
func (h *JournalHandler) ListOpenTrades(c echo.Context) error {
	ctx := c.Request().Context()

	trades, err := h.journalService.ListOpenTrades(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// GetTrade 获取单笔交易
// GET /api/journal/trades/:id
func (h *JournalHandler) GetTrade(c echo.Context) error {
	ctx := c.Request().Context()

	trade, err := h.journalService.GetTrade(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trade)
}

// CloseTrade 平仓
// POST /api/journal/trades/:id/close
func (h *JournalHandler) CloseTrade(c echo.Context) error {
	ctx := c.Request().Context()

	var req CloseTradeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	exitAt := time.Now()
	if req.ExitAt != nil {
		exitAt = *req.ExitAt
	}

	trade, err := h.journalService.CloseTrade(ctx, c.Param("id"), req.ExitPrice, exitAt, req.Pnl)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trade)
}

// Evaluate 重新执行规则评估
// POST /api/journal/trades/:id/evaluate
func (h *JournalHandler) Evaluate(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.journalService.Evaluate(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// DeleteTrade 删除交易记录
// DELETE /api/journal/trades/:id
func (h *JournalHandler) DeleteTrade(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.journalService.DeleteTrade(ctx, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "已删除",
	})
}

// GetStats 获取交易统计数据
// GET /api/journal/stats
func (h *JournalHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.journalService.GetTradeStats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// RegisterRoutes 注册路由
func (h *JournalHandler) RegisterRoutes(g *echo.Group) {
	journal := g.Group("/journal")

	journal.POST("/trades", h.CreateTrade)
	journal.GET("/trades", h.ListTrades)
	journal.GET("/trades/open", h.ListOpenTrades)
	journal.GET("/trades/:id", h.GetTrade)
	journal.POST("/trades/:id/close", h.CloseTrade)
	journal.POST("/trades/:id/evaluate", h.Evaluate)
	journal.DELETE("/trades/:id", h.DeleteTrade)
	journal.GET("/stats", h.GetStats)
}
