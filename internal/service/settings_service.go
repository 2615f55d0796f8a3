package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dushixiang/ballast/internal/engine"
	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/repo"
	"github.com/go-orz/orz"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSettings 默认账户配置
var DefaultSettings = models.Settings{
	ID:             "00000000-0000-0000-0000-000000000000",
	AccountSize:    10000,
	BaseCurrency:   "USD",
	RiskPerTrade:   1,
	InitialCapital: 10000,
	CurrentCapital: 10000,
	RiskManagement: models.RiskManagement{
		MaxRiskPerTrade: 2,
		MaxDailyRisk:    5,
		MaxDrawdown:     10,
		DrawdownMode:    models.DrawdownModeSoftWarning,
	},
	TradingRules: models.TradingRules{
		MaxTradesPerDay:     5,
		MaxTradesPerWeek:    20,
		TradingHoursEnabled: false,
		TradingHourStart:    9,
		TradingHourEnd:      17,
		DailyLossLimit:      5,
		MinRiskReward:       1,
	},
}

// SettingsService 账户配置服务。配置由外部持有并可变，
// 引擎产生的后果变更统一经由本服务落库。
type SettingsService struct {
	logger *zap.Logger

	*orz.Service
	*repo.SettingsRepo
}

// NewSettingsService 创建配置服务
func NewSettingsService(db *gorm.DB, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		logger:       logger,
		Service:      orz.NewService(db),
		SettingsRepo: repo.NewSettingsRepo(db),
	}
}

// Get 获取配置，数据库中没有时初始化默认配置
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.SettingsRepo.FindFirst(ctx)
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = DefaultSettings
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	if err := s.SettingsRepo.Create(ctx, &settings); err != nil {
		return nil, fmt.Errorf("failed to initialize default settings: %w", err)
	}
	s.logger.Info("default settings initialized")
	return &settings, nil
}

// Update 更新配置。纪律锁生效期间 blockedUntil 只增不减，
// 任何试图缩短锁定时间的更新都会被静默修正为保留原值。
func (s *SettingsService) Update(ctx context.Context, updated models.Settings, now time.Time) (*models.Settings, error) {
	var result *models.Settings
	err := s.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.Get(ctx)
		if err != nil {
			return err
		}

		updated.ID = current.ID
		updated.CreatedAt = current.CreatedAt

		if current.IsBlocked(now) {
			if updated.Discipline.BlockedUntil == nil ||
				updated.Discipline.BlockedUntil.Before(*current.Discipline.BlockedUntil) {
				updated.Discipline.BlockedUntil = current.Discipline.BlockedUntil
				updated.Discipline.Enabled = true
			}
		}

		if err := s.SettingsRepo.Save(ctx, &updated); err != nil {
			return err
		}
		result = &updated
		return nil
	})
	return result, err
}

// ApplyPatch 应用引擎产生的配置后果变更。同样保证锁定时间单调不减。
func (s *SettingsService) ApplyPatch(ctx context.Context, patch engine.SettingsPatch, now time.Time) (*models.Settings, error) {
	if patch.IsEmpty() {
		return s.Get(ctx)
	}

	var result *models.Settings
	err := s.Transaction(ctx, func(ctx context.Context) error {
		settings, err := s.Get(ctx)
		if err != nil {
			return err
		}

		if patch.BlockedUntil != nil {
			until := *patch.BlockedUntil
			if cur := settings.Discipline.BlockedUntil; cur != nil && cur.After(until) {
				until = *cur
			}
			settings.Discipline.BlockedUntil = &until
		}
		if patch.DisciplineEnabled != nil {
			settings.Discipline.Enabled = *patch.DisciplineEnabled
		}
		if patch.RiskPerTrade != nil {
			settings.RiskPerTrade = *patch.RiskPerTrade
		}

		if err := s.SettingsRepo.Save(ctx, settings); err != nil {
			return err
		}
		result = settings
		return nil
	})

	if err == nil {
		s.logger.Info("settings patch applied",
			zap.Timep("blocked_until", patch.BlockedUntil),
			zap.Float64p("risk_per_trade", patch.RiskPerTrade))
	}
	return result, err
}

// AdjustCapital 平仓后调整当前资金
func (s *SettingsService) AdjustCapital(ctx context.Context, delta float64) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		settings, err := s.Get(ctx)
		if err != nil {
			return err
		}
		settings.CurrentCapital += delta
		return s.SettingsRepo.Save(ctx, settings)
	})
}
