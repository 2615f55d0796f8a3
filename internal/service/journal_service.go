package service

import (
	"context"
	"time"

	"github.com/dushixiang/ballast/internal/engine"
	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/repo"
	"github.com/dushixiang/ballast/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// blockOnRuleBreakCooldownHours 开启违规自动锁定时，严重违规触发的冷静期时长
const blockOnRuleBreakCooldownHours = 24

// TradeStats 交易统计
type TradeStats struct {
	Total          int     `json:"total"`
	Open           int     `json:"open"`
	Closed         int     `json:"closed"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	TotalPnl       float64 `json:"total_pnl"`
	AvgRiskReward  float64 `json:"avg_risk_reward"`
	ModelTrades    int     `json:"model_trades"`
	ErrorTrades    int     `json:"error_trades"`
}

// JournalService 交易日志服务：负责交易的录入、平仓与规则评估附注
type JournalService struct {
	logger *zap.Logger

	*orz.Service
	*repo.TradeRepo

	settingsService *SettingsService
}

// NewJournalService 创建交易日志服务
func NewJournalService(db *gorm.DB, settingsService *SettingsService, logger *zap.Logger) *JournalService {
	return &JournalService{
		logger:          logger,
		Service:         orz.NewService(db),
		TradeRepo:       repo.NewTradeRepo(db),
		settingsService: settingsService,
	}
}

// CreateTrade 录入一笔交易并立即做规则评估附注
func (s *JournalService) CreateTrade(ctx context.Context, trade *models.Trade) error {
	trade.ID = ulid.Make().String()
	trade.Status = models.TradeStatusOpen
	trade.Pnl = nil
	trade.ExitPrice = nil
	trade.ExitAt = nil
	if trade.EntryAt.IsZero() {
		trade.EntryAt = time.Now()
	}
	trade.RiskReward = trade.ComputeRiskReward()

	return s.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.evaluate(ctx, trade); err != nil {
			return err
		}
		return s.TradeRepo.Create(ctx, trade)
	})
}

// CloseTrade 平仓。pnl 为空时按价差自动计算；平仓后同步调整当前资金。
func (s *JournalService) CloseTrade(ctx context.Context, id string, exitPrice float64, exitAt time.Time, pnl *float64) (*models.Trade, error) {
	var trade models.Trade
	err := s.Transaction(ctx, func(ctx context.Context) error {
		var err error
		trade, err = s.TradeRepo.FindById(ctx, id)
		if err != nil {
			return err
		}
		if trade.IsClosed() {
			return xe.ErrTradeAlreadyClosed
		}

		if pnl == nil {
			value := realizedPnl(&trade, exitPrice)
			pnl = &value
		}

		trade.Status = models.TradeStatusClosed
		trade.ExitPrice = &exitPrice
		trade.ExitAt = &exitAt
		trade.Pnl = pnl

		if _, err := s.evaluate(ctx, &trade); err != nil {
			return err
		}
		if err := s.TradeRepo.Save(ctx, &trade); err != nil {
			return err
		}
		return s.settingsService.AdjustCapital(ctx, *pnl)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("trade closed",
		zap.String("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.Float64p("pnl", trade.Pnl))
	return &trade, nil
}

// Evaluate 对指定交易重新执行规则评估并返回结果
func (s *JournalService) Evaluate(ctx context.Context, id string) (*engine.RuleResult, error) {
	var result *engine.RuleResult
	err := s.Transaction(ctx, func(ctx context.Context) error {
		trade, err := s.TradeRepo.FindById(ctx, id)
		if err != nil {
			return err
		}
		result, err = s.evaluate(ctx, &trade)
		if err != nil {
			return err
		}
		return s.TradeRepo.Save(ctx, &trade)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// evaluate 执行规则评估并把附注写回交易对象。
// 开启违规自动锁定时，严重违规会顺带延长纪律锁。
func (s *JournalService) evaluate(ctx context.Context, trade *models.Trade) (*engine.RuleResult, error) {
	settings, err := s.settingsService.Get(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := s.TradeRepo.FindAllOrderByEntryAt(ctx)
	if err != nil {
		return nil, err
	}

	result := engine.EvaluateRules(*trade, ledger, *settings)

	evaluated := make([]string, 0, len(result.Checks))
	violatedKeys := make([]string, 0, len(result.Violations))
	for _, c := range result.Checks {
		evaluated = append(evaluated, c.Rule)
	}
	for _, v := range result.Violations {
		violatedKeys = append(violatedKeys, v.Rule)
	}
	trade.EvaluatedRules = evaluated
	trade.ViolatedRules = violatedKeys
	trade.Classification = engine.Classify(*trade, result.Violations)

	if settings.Discipline.BlockOnRuleBreak && result.Status == engine.RuleStatusCriticalViolation {
		now := time.Now()
		until := now.Add(blockOnRuleBreakCooldownHours * time.Hour)
		enabled := true
		patch := engine.SettingsPatch{BlockedUntil: &until, DisciplineEnabled: &enabled}
		if _, err := s.settingsService.ApplyPatch(ctx, patch, now); err != nil {
			return nil, err
		}
		s.logger.Warn("critical rule violation, discipline lock extended",
			zap.String("trade_id", trade.ID),
			zap.Time("blocked_until", until))
	}

	return &result, nil
}

// GetTrade 获取单笔交易
func (s *JournalService) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	trade, err := s.TradeRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// ListTrades 获取最近的交易记录
func (s *JournalService) ListTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	return s.TradeRepo.FindRecentTrades(ctx, limit)
}

// ListOpenTrades 获取所有持仓中的交易
func (s *JournalService) ListOpenTrades(ctx context.Context) ([]models.Trade, error) {
	return s.TradeRepo.FindOpenTrades(ctx)
}

// DeleteTrade 删除交易记录
func (s *JournalService) DeleteTrade(ctx context.Context, id string) error {
	return s.TradeRepo.DeleteById(ctx, id)
}

// GetTradeStats 获取交易统计数据
func (s *JournalService) GetTradeStats(ctx context.Context) (*TradeStats, error) {
	trades, err := s.TradeRepo.FindAllOrderByEntryAt(ctx)
	if err != nil {
		return nil, err
	}

	stats := &TradeStats{Total: len(trades)}
	rrSum, rrCount := 0.0, 0
	for i := range trades {
		t := trades[i]
		if !t.IsClosed() {
			stats.Open++
			continue
		}
		stats.Closed++
		if t.Pnl != nil {
			stats.TotalPnl += *t.Pnl
			if *t.Pnl > 0 {
				stats.Wins++
			} else if *t.Pnl < 0 {
				stats.Losses++
			}
		}
		if t.RiskReward != nil {
			rrSum += *t.RiskReward
			rrCount++
		}
		switch t.Classification {
		case models.ClassificationModel:
			stats.ModelTrades++
		case models.ClassificationError:
			stats.ErrorTrades++
		}
	}
	if stats.Closed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Closed) * 100
	}
	if rrCount > 0 {
		stats.AvgRiskReward = rrSum / float64(rrCount)
	}
	return stats, nil
}

// realizedPnl 按价差计算已实现盈亏，做空方向取反
func realizedPnl(t *models.Trade, exitPrice float64) float64 {
	diff := exitPrice - t.EntryPrice
	if t.Side == models.SideShort {
		diff = -diff
	}
	return diff * t.NormalizedUnits() * t.EffectiveLeverage()
}
