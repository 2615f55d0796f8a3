package models

import (
	"time"
)

// 回撤处理模式
const (
	DrawdownModeHardStop    = "hard-stop"    // 触及最大回撤后强制禁止交易
	DrawdownModeSoftWarning = "soft-warning" // 触及最大回撤后仅提示
)

// RiskManagement 风险管理参数
type RiskManagement struct {
	MaxRiskPerTrade float64 `gorm:"type:decimal(10,4)" json:"max_risk_per_trade"` // 单笔最大风险百分比
	MaxDailyRisk    float64 `gorm:"type:decimal(10,4)" json:"max_daily_risk"`     // 单日最大风险百分比
	MaxDrawdown     float64 `gorm:"type:decimal(10,4)" json:"max_drawdown"`       // 最大回撤百分比
	DrawdownMode    string  `gorm:"type:varchar(20)" json:"drawdown_mode"`        // hard-stop/soft-warning
}

// TradingRules 交易纪律规则参数
type TradingRules struct {
	MaxTradesPerDay     int     `gorm:"type:int" json:"max_trades_per_day"`             // 单日最大交易次数
	MaxTradesPerWeek    int     `gorm:"type:int" json:"max_trades_per_week"`            // 单周最大交易次数
	TradingHoursEnabled bool    `json:"trading_hours_enabled"`                          // 是否限制交易时段
	TradingHourStart    int     `gorm:"type:int" json:"trading_hour_start"`             // 允许交易开始小时（含）
	TradingHourEnd      int     `gorm:"type:int" json:"trading_hour_end"`               // 允许交易结束小时（不含）
	MaxLotSize          float64 `gorm:"type:decimal(20,8)" json:"max_lot_size"`         // 最大仓位大小
	DailyProfitTarget   float64 `gorm:"type:decimal(10,4)" json:"daily_profit_target"`  // 单日盈利目标百分比
	DailyLossLimit      float64 `gorm:"type:decimal(10,4)" json:"daily_loss_limit"`     // 单日亏损上限百分比
	MinRiskReward       float64 `gorm:"type:decimal(10,4)" json:"min_risk_reward"`      // 最低风报比要求
}

// Discipline 超级纪律锁
type Discipline struct {
	Enabled          bool       `json:"enabled"`             // 是否启用纪律锁
	BlockOnRuleBreak bool       `json:"block_on_rule_break"` // 违规后是否自动锁定
	BlockedUntil     *time.Time `json:"blocked_until"`       // 锁定截止时间，生效期间只增不减
}

// Settings 日志账户配置（单行记录）
type Settings struct {
	ID             string  `gorm:"primaryKey;size:26" json:"id"`
	AccountSize    float64 `gorm:"type:decimal(20,8)" json:"account_size"`    // 账户规模
	BaseCurrency   string  `gorm:"type:varchar(10)" json:"base_currency"`     // 基础货币
	RiskPerTrade   float64 `gorm:"type:decimal(10,4)" json:"risk_per_trade"`  // 默认单笔风险百分比
	InitialCapital float64 `gorm:"type:decimal(20,8)" json:"initial_capital"` // 初始资金
	CurrentCapital float64 `gorm:"type:decimal(20,8)" json:"current_capital"` // 当前资金

	RiskManagement RiskManagement `gorm:"embedded;embeddedPrefix:rm_" json:"risk_management"`
	TradingRules   TradingRules   `gorm:"embedded;embeddedPrefix:tr_" json:"trading_rules"`
	Discipline     Discipline     `gorm:"embedded;embeddedPrefix:dc_" json:"discipline"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Settings) TableName() string {
	return "settings"
}

// IsBlocked 判断纪律锁在指定时间是否生效
func (s *Settings) IsBlocked(now time.Time) bool {
	if !s.Discipline.Enabled || s.Discipline.BlockedUntil == nil {
		return false
	}
	return now.Before(*s.Discipline.BlockedUntil)
}
