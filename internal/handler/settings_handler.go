package handler

import (
	"net/http"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SettingsHandler 账户配置HTTP处理器
type SettingsHandler struct {
	settingsService *service.SettingsService
	logger          *zap.Logger
}

// NewSettingsHandler 创建配置处理器
func NewSettingsHandler(settingsService *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// UpdateSettingsRequest 更新配置请求
type UpdateSettingsRequest struct {
	AccountSize    float64 `json:"account_size" validate:"required,gt=0"`
	BaseCurrency   string  `json:"base_currency" validate:"required,max=10"`
	RiskPerTrade   float64 `json:"risk_per_trade" validate:"required,gt=0,lte=100"`
	InitialCapital float64 `json:"initial_capital" validate:"required,gt=0"`
	CurrentCapital float64 `json:"current_capital" validate:"required,gt=0"`

	RiskManagement struct {
		MaxRiskPerTrade float64 `json:"max_risk_per_trade" validate:"required,gt=0,lte=100"`
		MaxDailyRisk    float64 `json:"max_daily_risk" validate:"required,gt=0,lte=100"`
		MaxDrawdown     float64 `json:"max_drawdown" validate:"required,gt=0,lte=100"`
		DrawdownMode    string  `json:"drawdown_mode" validate:"required,oneof=hard-stop soft-warning"`
	} `json:"risk_management"`

	TradingRules struct {
		MaxTradesPerDay     int     `json:"max_trades_per_day" validate:"omitempty,gte=0"`
		MaxTradesPerWeek    int     `json:"max_trades_per_week" validate:"omitempty,gte=0"`
		TradingHoursEnabled bool    `json:"trading_hours_enabled"`
		TradingHourStart    int     `json:"trading_hour_start" validate:"gte=0,lte=23"`
		TradingHourEnd      int     `json:"trading_hour_end" validate:"gte=0,lte=24"`
		MaxLotSize          float64 `json:"max_lot_size" validate:"omitempty,gte=0"`
		DailyProfitTarget   float64 `json:"daily_profit_target" validate:"omitempty,gte=0"`
		DailyLossLimit      float64 `json:"daily_loss_limit" validate:"omitempty,gte=0,lte=100"`
		MinRiskReward       float64 `json:"min_risk_reward" validate:"omitempty,gte=0"`
	} `json:"trading_rules"`

	Discipline struct {
		Enabled          bool       `json:"enabled"`
		BlockOnRuleBreak bool       `json:"block_on_rule_break"`
		BlockedUntil     *time.Time `json:"blocked_until"`
	} `json:"discipline"`
}

// GetSettings 获取配置
// GET /api/settings
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	ctx := c.Request().Context()

	settings, err := h.settingsService.Get(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings 更新配置。纪律锁生效期间缩短锁定时间的请求会被修正为保留原值。
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated := models.Settings{
		AccountSize:    req.AccountSize,
		BaseCurrency:   req.BaseCurrency,
		RiskPerTrade:   req.RiskPerTrade,
		InitialCapital: req.InitialCapital,
		CurrentCapital: req.CurrentCapital,
		RiskManagement: models.RiskManagement{
			MaxRiskPerTrade: req.RiskManagement.MaxRiskPerTrade,
			MaxDailyRisk:    req.RiskManagement.MaxDailyRisk,
			MaxDrawdown:     req.RiskManagement.MaxDrawdown,
			DrawdownMode:    req.RiskManagement.DrawdownMode,
		},
		TradingRules: models.TradingRules{
			MaxTradesPerDay:     req.TradingRules.MaxTradesPerDay,
			MaxTradesPerWeek:    req.TradingRules.MaxTradesPerWeek,
			TradingHoursEnabled: req.TradingRules.TradingHoursEnabled,
			TradingHourStart:    req.TradingRules.TradingHourStart,
			TradingHourEnd:      req.TradingRules.TradingHourEnd,
			MaxLotSize:          req.TradingRules.MaxLotSize,
			DailyProfitTarget:   req.TradingRules.DailyProfitTarget,
			DailyLossLimit:      req.TradingRules.DailyLossLimit,
			MinRiskReward:       req.TradingRules.MinRiskReward,
		},
		Discipline: models.Discipline{
			Enabled:          req.Discipline.Enabled,
			BlockOnRuleBreak: req.Discipline.BlockOnRuleBreak,
			BlockedUntil:     req.Discipline.BlockedUntil,
		},
	}

	settings, err := h.settingsService.Update(ctx, updated, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// RegisterRoutes 注册路由
func (h *SettingsHandler) RegisterRoutes(g *echo.Group) {
	settings := g.Group("/settings")

	settings.GET("", h.GetSettings)
	settings.PUT("", h.UpdateSettings)
}
