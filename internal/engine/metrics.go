// Package engine 实现交易日志的风险与纪律计算核心。
// 引擎是纯函数式的：账本、配置与“当前时间”全部由调用方传入，
// 不读取时钟、不做任何 I/O，输出的变更建议也只返回给调用方处理。
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/dushixiang/ballast/internal/models"
)

// DrawdownMetrics 回撤指标
type DrawdownMetrics struct {
	Current        float64 `json:"current"`         // 当前回撤金额
	CurrentPercent float64 `json:"current_percent"` // 当前回撤百分比（相对峰值）
	Max            float64 `json:"max"`             // 历史最大回撤金额
	MaxPercent     float64 `json:"max_percent"`     // 历史最大回撤百分比（相对峰值）
	Peak           float64 `json:"peak"`            // 资金峰值
	Equity         float64 `json:"equity"`          // 当前权益
}

// AssetExposure 单品种风险敞口
type AssetExposure struct {
	Symbol string  `json:"symbol"`
	Amount float64 `json:"amount"`
}

// ExposureMetrics 持仓风险敞口指标
type ExposureMetrics struct {
	Total   float64         `json:"total"`    // 总风险金额
	Percent float64         `json:"percent"`  // 占当前资金百分比
	ByAsset []AssetExposure `json:"by_asset"` // 按品种拆分
}

// DailyLossMetrics 当日亏损指标
type DailyLossMetrics struct {
	Amount  float64 `json:"amount"`  // 当日净亏损金额（盈利时为0）
	Percent float64 `json:"percent"` // 占当前资金百分比
}

// Drawdown 基于已平仓交易构建时间序列权益曲线并计算回撤。
// 账本为空或全部持仓中时返回全零；百分比始终相对峰值计算。
func Drawdown(trades []models.Trade, initialCapital float64) DrawdownMetrics {
	closed := closedTradesByExit(trades)
	if len(closed) == 0 {
		return DrawdownMetrics{Peak: initialCapital, Equity: initialCapital}
	}

	equity := initialCapital
	peak := initialCapital
	m := DrawdownMetrics{}

	for _, t := range closed {
		equity += *t.Pnl
		if equity > peak {
			peak = equity
		}
		dd := peak - equity
		ddPercent := 0.0
		if peak > 0 {
			ddPercent = dd / peak * 100
		}
		if dd > m.Max {
			m.Max = dd
		}
		if ddPercent > m.MaxPercent {
			m.MaxPercent = ddPercent
		}
		m.Current = dd
		m.CurrentPercent = ddPercent
	}

	m.Peak = peak
	m.Equity = equity
	return m
}

// Exposure 计算所有持仓中交易的总风险敞口。
// 单笔风险 = |开仓价 − 止损价| × 归一化单位数量 × 杠杆；未设置止损的交易不计入。
func Exposure(trades []models.Trade, currentCapital float64) ExposureMetrics {
	byAsset := make(map[string]float64)
	total := 0.0

	for i := range trades {
		t := &trades[i]
		if t.Status != models.TradeStatusOpen || t.StopLoss == nil {
			continue
		}
		risk := math.Abs(t.EntryPrice-*t.StopLoss) * t.NormalizedUnits() * t.EffectiveLeverage()
		byAsset[t.Symbol] += risk
		total += risk
	}

	m := ExposureMetrics{Total: total}
	if currentCapital > 0 {
		m.Percent = total / currentCapital * 100
	}

	symbols := make([]string, 0, len(byAsset))
	for s := range byAsset {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		m.ByAsset = append(m.ByAsset, AssetExposure{Symbol: s, Amount: byAsset[s]})
	}
	return m
}

// TradeRiskPercent 计算单笔交易的风险百分比，未设置止损或资金无效时返回0
func TradeRiskPercent(t models.Trade, currentCapital float64) float64 {
	if t.StopLoss == nil || currentCapital <= 0 {
		return 0
	}
	risk := math.Abs(t.EntryPrice-*t.StopLoss) * t.NormalizedUnits() * t.EffectiveLeverage()
	return risk / currentCapital * 100
}

// AverageRiskPerTrade 计算已平仓交易的平均风险百分比
func AverageRiskPerTrade(trades []models.Trade, currentCapital float64) float64 {
	sum := 0.0
	count := 0
	for i := range trades {
		t := trades[i]
		if !t.IsClosed() || t.StopLoss == nil {
			continue
		}
		sum += TradeRiskPercent(t, currentCapital)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// DailyLoss 汇总指定日期的已平仓盈亏，净盈利时亏损记为0
func DailyLoss(trades []models.Trade, currentCapital float64, now time.Time) DailyLossMetrics {
	sum := 0.0
	for i := range trades {
		t := trades[i]
		if !t.IsClosed() || t.Pnl == nil || t.ExitAt == nil {
			continue
		}
		if sameDay(*t.ExitAt, now) {
			sum += *t.Pnl
		}
	}

	m := DailyLossMetrics{}
	if sum < 0 {
		m.Amount = -sum
		if currentCapital > 0 {
			m.Percent = m.Amount / currentCapital * 100
		}
	}
	return m
}

// closedTradesByExit 返回按平仓时间升序排列的已平仓交易
func closedTradesByExit(trades []models.Trade) []models.Trade {
	closed := make([]models.Trade, 0, len(trades))
	for i := range trades {
		t := trades[i]
		if t.IsClosed() && t.Pnl != nil && t.ExitAt != nil {
			closed = append(closed, t)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].ExitAt.Before(*closed[j].ExitAt)
	})
	return closed
}

// sameDay 判断两个时间是否处于同一个自然日
func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
