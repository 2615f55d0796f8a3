package models

import (
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 交易方向
const (
	SideLong  = "long"
	SideShort = "short"
)

// 交易状态
const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
)

// 交易分类
const (
	ClassificationModel   = "model"   // 模范交易：盈利且完全遵守规则
	ClassificationNeutral = "neutral" // 普通交易
	ClassificationError   = "error"   // 错误交易：严重违规或风报比过低
)

// Trade 交易日志记录
type Trade struct {
	ID         string   `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Symbol     string   `gorm:"type:varchar(20);not null;index" json:"symbol"`   // 交易品种
	Side       string   `gorm:"type:varchar(10);not null" json:"side"`           // long/short
	EntryPrice float64  `gorm:"type:decimal(20,8);not null" json:"entry_price"`  // 开仓价格
	ExitPrice  *float64 `gorm:"type:decimal(20,8)" json:"exit_price,omitempty"`  // 平仓价格（持仓中为空）
	Quantity   float64  `gorm:"type:decimal(20,8);not null" json:"quantity"`     // 仓位大小
	Leverage   int      `gorm:"type:int" json:"leverage"`                        // 杠杆倍数
	StopLoss   *float64 `gorm:"type:decimal(20,8)" json:"stop_loss,omitempty"`   // 止损价格
	TakeProfit *float64 `gorm:"type:decimal(20,8)" json:"take_profit,omitempty"` // 止盈价格
	Status     string   `gorm:"type:varchar(10);not null;index" json:"status"`   // open/closed
	Pnl        *float64 `gorm:"type:decimal(20,8)" json:"pnl,omitempty"`         // 已实现盈亏（平仓后有值）
	RiskReward *float64 `gorm:"type:decimal(10,4)" json:"risk_reward,omitempty"` // 风报比（需同时设置止损止盈）

	Tags          datatypes.JSONSlice[string] `gorm:"type:json" json:"tags"`                  // 自定义标签
	EmotionBefore string                      `gorm:"type:varchar(20)" json:"emotion_before"` // 开仓前情绪
	EmotionDuring string                      `gorm:"type:varchar(20)" json:"emotion_during"` // 持仓中情绪

	// 规则评估附注（由引擎追加，不参与手工编辑）
	EvaluatedRules datatypes.JSONSlice[string] `gorm:"type:json" json:"evaluated_rules"`
	ViolatedRules  datatypes.JSONSlice[string] `gorm:"type:json" json:"violated_rules"`
	Classification string                      `gorm:"type:varchar(10)" json:"classification"` // model/neutral/error

	EntryAt   time.Time      `gorm:"not null;index" json:"entry_at"` // 开仓时间
	ExitAt    *time.Time     `json:"exit_at,omitempty"`              // 平仓时间
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// IsClosed 是否已平仓
func (t *Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed
}

// EffectiveLeverage 有效杠杆倍数（未设置时视为1）
func (t *Trade) EffectiveLeverage() float64 {
	if t.Leverage <= 0 {
		return 1
	}
	return float64(t.Leverage)
}

// ComputeRiskReward 计算风报比，要求同时设置止损和止盈
func (t *Trade) ComputeRiskReward() *float64 {
	if t.StopLoss == nil || t.TakeProfit == nil {
		return nil
	}
	risk := math.Abs(t.EntryPrice - *t.StopLoss)
	if risk == 0 {
		return nil
	}
	reward := math.Abs(*t.TakeProfit - t.EntryPrice)
	rr := reward / risk
	return &rr
}

// NormalizedUnits 将仓位大小归一化为实际单位数量。
// 启发式规则：六位字母品种（外汇货币对）且仓位小于100时按标准手换算（×100,000），
// 否则直接使用原始数量。该规则是历史行为的保留，并非对所有品种都严格成立。
func (t *Trade) NormalizedUnits() float64 {
	if t.Quantity < 100 && isCurrencyPair(t.Symbol) {
		return t.Quantity * 100_000
	}
	return t.Quantity
}

// isCurrencyPair 判断是否为六位字母的货币对品种，例如 EURUSD
func isCurrencyPair(symbol string) bool {
	s := strings.TrimSpace(symbol)
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
