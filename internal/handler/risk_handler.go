package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dushixiang/ballast/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RiskHandler 风控HTTP处理器，同时承担复盘循环的控制接口
type RiskHandler struct {
	riskService *service.RiskService
	reviewLoop  *service.ReviewLoop
	logger      *zap.Logger
	loopCtx     context.Context
	loopCancel  context.CancelFunc
}

// NewRiskHandler 创建风控处理器
func NewRiskHandler(riskService *service.RiskService, reviewLoop *service.ReviewLoop, logger *zap.Logger) *RiskHandler {
	return &RiskHandler{
		riskService: riskService,
		reviewLoop:  reviewLoop,
		logger:      logger,
	}
}

// GetMetrics 获取风险指标
// GET /api/risk/metrics
func (h *RiskHandler) GetMetrics(c echo.Context) error {
	ctx := c.Request().Context()

	metrics, err := h.riskService.GetMetrics(ctx, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, metrics)
}

// GetGlobalRisk 获取全局风险状态
// GET /api/risk/global
func (h *RiskHandler) GetGlobalRisk(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.riskService.GetGlobalRisk(ctx, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetTradingStatus 获取交易许可状态
// GET /api/risk/status
func (h *RiskHandler) GetTradingStatus(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.riskService.GetTradingStatus(ctx, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Snapshot 立即计算并写入一条风险快照
// POST /api/risk/snapshot
func (h *RiskHandler) Snapshot(c echo.Context) error {
	ctx := c.Request().Context()

	snapshot, err := h.riskService.Snapshot(ctx, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot)
}

// GetEquityCurve 获取风险快照曲线
// GET /api/risk/equity-curve
func (h *RiskHandler) GetEquityCurve(c echo.Context) error {
	ctx := c.Request().Context()

	snapshots, err := h.riskService.GetEquityCurve(ctx)
	if err != nil {
		return err
	}

	data := make([]map[string]interface{}, 0, len(snapshots))
	for _, s := range snapshots {
		data = append(data, map[string]interface{}{
			"timestamp":            s.RecordedAt.Unix(),
			"time":                 s.RecordedAt,
			"current_capital":      s.CurrentCapital,
			"peak_capital":         s.PeakCapital,
			"drawdown_percent":     s.DrawdownPercent,
			"max_drawdown_percent": s.MaxDrawdownPercent,
			"exposure_percent":     s.ExposurePercent,
			"daily_loss_percent":   s.DailyLossPercent,
			"global_risk":          s.GlobalRiskStatus,
			"trading_status":       s.TradingStatus,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(data),
		"data":  data,
	})
}

// GetLatestSnapshot 获取最近一条风险快照
// GET /api/risk/snapshot/latest
func (h *RiskHandler) GetLatestSnapshot(c echo.Context) error {
	ctx := c.Request().Context()

	snapshot, err := h.riskService.GetLatestSnapshot(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot)
}

// GetReviewStatus 获取复盘循环状态
// GET /api/risk/review/status
func (h *RiskHandler) GetReviewStatus(c echo.Context) error {
	ctx := c.Request().Context()

	status, err := h.reviewLoop.GetStatus(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// StartReview 启动复盘循环
// POST /api/risk/review/start
func (h *RiskHandler) StartReview(c echo.Context) error {
	if h.reviewLoop.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "review loop is already running",
		})
	}

	h.loopCtx, h.loopCancel = context.WithCancel(context.Background())

	go func() {
		if err := h.reviewLoop.Start(h.loopCtx); err != nil {
			h.logger.Error("review loop error", zap.Error(err))
		}
	}()

	h.logger.Info("review loop started via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "review loop started",
	})
}

// StopReview 停止复盘循环
// POST /api/risk/review/stop
func (h *RiskHandler) StopReview(c echo.Context) error {
	if !h.reviewLoop.IsRunning() {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "review loop is not running",
		})
	}

	h.reviewLoop.Stop()
	if h.loopCancel != nil {
		h.loopCancel()
	}

	h.logger.Info("review loop stopped via API")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "review loop stopped",
	})
}

// RegisterRoutes 注册路由
func (h *RiskHandler) RegisterRoutes(g *echo.Group) {
	risk := g.Group("/risk")

	risk.GET("/metrics", h.GetMetrics)
	risk.GET("/global", h.GetGlobalRisk)
	risk.GET("/status", h.GetTradingStatus)
	risk.GET("/equity-curve", h.GetEquityCurve)
	risk.POST("/snapshot", h.Snapshot)
	risk.GET("/snapshot/latest", h.GetLatestSnapshot)

	risk.GET("/review/status", h.GetReviewStatus)
	risk.POST("/review/start", h.StartReview)
	risk.POST("/review/stop", h.StopReview)
}
