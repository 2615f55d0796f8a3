package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 目标周期
const (
	GoalPeriodDaily   = "daily"
	GoalPeriodWeekly  = "weekly"
	GoalPeriodMonthly = "monthly"
	GoalPeriodYearly  = "yearly"
)

// 目标指标类型
const (
	GoalMetricPnl       = "pnl"       // 盈亏目标（达到或超过为通过）
	GoalMetricWinRate   = "winRate"   // 胜率目标（达到或超过为通过）
	GoalMetricNumTrades = "numTrades" // 交易次数目标（不超过为通过）
)

// TradingGoal 交易目标。current 由外部（GoalService）根据交易日志重算，
// 引擎只观察前后两次取值来判定失败跃迁。
type TradingGoal struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Period    string    `gorm:"type:varchar(10);not null" json:"period"`       // daily/weekly/monthly/yearly
	Metric    string    `gorm:"type:varchar(10);not null" json:"metric"`       // pnl/winRate/numTrades
	Target    float64   `gorm:"type:decimal(20,8);not null" json:"target"`     // 目标值
	Current   float64   `gorm:"type:decimal(20,8)" json:"current"`             // 当前进度
	StartAt   time.Time `gorm:"not null;index" json:"start_at"`                // 有效期开始
	EndAt     time.Time `gorm:"not null;index" json:"end_at"`                  // 有效期结束
	Completed bool      `json:"completed"`                                     // 是否已完成
	IsPrimary bool      `json:"is_primary"`                                    // 是否主要目标
	IsBinding bool      `json:"is_binding"`                                    // 是否约束性目标（失败触发自动后果）

	// 约束性后果参数
	CooldownHours     int     `gorm:"type:int" json:"cooldown_hours"`                 // 冷静期小时数
	ReduceRiskPercent float64 `gorm:"type:decimal(10,4)" json:"reduce_risk_percent"` // 风险缩减百分比

	// 失败记录
	FailureCount        int                         `gorm:"type:int" json:"failure_count"`      // 历史失败次数
	FailedAt            *time.Time                  `json:"failed_at,omitempty"`                // 首次失败时间
	LastFailedAt        *time.Time                  `json:"last_failed_at,omitempty"`           // 最近失败时间
	GeneratedInsightIDs datatypes.JSONSlice[string] `gorm:"type:json" json:"generated_insight_ids"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (TradingGoal) TableName() string {
	return "trading_goals"
}

// IsActive 判断目标在指定时间是否处于有效期内
func (g *TradingGoal) IsActive(now time.Time) bool {
	return !now.Before(g.StartAt) && now.Before(g.EndAt)
}

// IsExceedGoal 是否为“不超过型”目标（numTrades），其余均为“达到型”
func (g *TradingGoal) IsExceedGoal() bool {
	return g.Metric == GoalMetricNumTrades
}

// IsFailingAt 判断给定进度值是否处于失败状态
func (g *TradingGoal) IsFailingAt(value float64) bool {
	if g.IsExceedGoal() {
		return value > g.Target
	}
	return value < g.Target
}
