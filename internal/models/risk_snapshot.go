package models

import (
	"time"

	"gorm.io/gorm"
)

// RiskSnapshot 风险快照记录，由复盘循环周期性写入，用于资金与纪律曲线展示
type RiskSnapshot struct {
	ID                 string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	CurrentCapital     float64        `gorm:"type:decimal(20,8);not null" json:"current_capital"` // 当前资金
	InitialCapital     float64        `gorm:"type:decimal(20,8)" json:"initial_capital"`          // 初始资金
	PeakCapital        float64        `gorm:"type:decimal(20,8)" json:"peak_capital"`             // 资金峰值
	DrawdownPercent    float64        `gorm:"type:decimal(10,4)" json:"drawdown_percent"`         // 当前回撤（相对峰值）
	MaxDrawdownPercent float64        `gorm:"type:decimal(10,4)" json:"max_drawdown_percent"`     // 历史最大回撤
	ExposurePercent    float64        `gorm:"type:decimal(10,4)" json:"exposure_percent"`         // 持仓风险敞口百分比
	DailyLossPercent   float64        `gorm:"type:decimal(10,4)" json:"daily_loss_percent"`       // 当日亏损百分比
	GlobalRiskStatus   string         `gorm:"type:varchar(10)" json:"global_risk_status"`         // ok/warning/blocked
	TradingStatus      string         `gorm:"type:varchar(20)" json:"trading_status"`             // operable/risk-elevated/pause-recommended
	RecordedAt         time.Time      `gorm:"not null;index" json:"recorded_at"`                  // 记录时间
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (RiskSnapshot) TableName() string {
	return "risk_snapshots"
}
