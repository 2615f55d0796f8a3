package service

import (
	"context"
	"time"

	"github.com/dushixiang/ballast/internal/engine"
	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/repo"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RiskMetrics 风险指标汇总
type RiskMetrics struct {
	Drawdown       engine.DrawdownMetrics  `json:"drawdown"`
	Exposure       engine.ExposureMetrics  `json:"exposure"`
	AvgRiskPercent float64                 `json:"avg_risk_percent"`
	DailyLoss      engine.DailyLossMetrics `json:"daily_loss"`
}

// RiskService 风控服务：聚合引擎指标得出全局风险与交易许可状态
type RiskService struct {
	logger *zap.Logger

	*orz.Service
	*repo.RiskSnapshotRepo

	tradeRepo       *repo.TradeRepo
	settingsService *SettingsService
}

// NewRiskService 创建风控服务
func NewRiskService(db *gorm.DB, settingsService *SettingsService, logger *zap.Logger) *RiskService {
	return &RiskService{
		logger:           logger,
		Service:          orz.NewService(db),
		RiskSnapshotRepo: repo.NewRiskSnapshotRepo(db),
		tradeRepo:        repo.NewTradeRepo(db),
		settingsService:  settingsService,
	}
}

// load 加载账本与配置
func (s *RiskService) load(ctx context.Context) ([]models.Trade, *models.Settings, error) {
	trades, err := s.tradeRepo.FindAllOrderByEntryAt(ctx)
	if err != nil {
		return nil, nil, err
	}
	settings, err := s.settingsService.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	return trades, settings, nil
}

// GetMetrics 获取风险指标
func (s *RiskService) GetMetrics(ctx context.Context, now time.Time) (*RiskMetrics, error) {
	trades, settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &RiskMetrics{
		Drawdown:       engine.Drawdown(trades, settings.InitialCapital),
		Exposure:       engine.Exposure(trades, settings.CurrentCapital),
		AvgRiskPercent: engine.AverageRiskPerTrade(trades, settings.CurrentCapital),
		DailyLoss:      engine.DailyLoss(trades, settings.CurrentCapital, now),
	}, nil
}

// GetGlobalRisk 获取全局风险状态
func (s *RiskService) GetGlobalRisk(ctx context.Context, now time.Time) (*engine.GlobalRiskResult, error) {
	trades, settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result := engine.GlobalRisk(trades, *settings, now)
	return &result, nil
}

// GetTradingStatus 获取交易许可状态
func (s *RiskService) GetTradingStatus(ctx context.Context, now time.Time) (*engine.TradingStatusResult, error) {
	trades, settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result := engine.TradingStatus(trades, *settings, now)
	return &result, nil
}

// Snapshot 计算当前风险状态并写入快照
func (s *RiskService) Snapshot(ctx context.Context, now time.Time) (*models.RiskSnapshot, error) {
	trades, settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	drawdown := engine.Drawdown(trades, settings.InitialCapital)
	exposure := engine.Exposure(trades, settings.CurrentCapital)
	dailyLoss := engine.DailyLoss(trades, settings.CurrentCapital, now)
	globalRisk := engine.GlobalRisk(trades, *settings, now)
	tradingStatus := engine.TradingStatus(trades, *settings, now)

	snapshot := &models.RiskSnapshot{
		ID:                 ulid.Make().String(),
		CurrentCapital:     settings.CurrentCapital,
		InitialCapital:     settings.InitialCapital,
		PeakCapital:        drawdown.Peak,
		DrawdownPercent:    drawdown.CurrentPercent,
		MaxDrawdownPercent: drawdown.MaxPercent,
		ExposurePercent:    exposure.Percent,
		DailyLossPercent:   dailyLoss.Percent,
		GlobalRiskStatus:   globalRisk.Status,
		TradingStatus:      tradingStatus.Status,
		RecordedAt:         now,
	}

	if err := s.RiskSnapshotRepo.Create(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// GetLatestSnapshot 获取最近一条风险快照
func (s *RiskService) GetLatestSnapshot(ctx context.Context) (*models.RiskSnapshot, error) {
	snapshot, err := s.RiskSnapshotRepo.FindLatest(ctx)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetEquityCurve 获取风险快照曲线
func (s *RiskService) GetEquityCurve(ctx context.Context) ([]models.RiskSnapshot, error) {
	return s.RiskSnapshotRepo.FindAllOrderByRecordedAt(ctx)
}
