package engine

import (
	"fmt"
	"time"

	"github.com/dushixiang/ballast/internal/models"
)

// 全局风险状态
const (
	GlobalRiskOK      = "ok"
	GlobalRiskWarning = "warning"
	GlobalRiskBlocked = "blocked"
)

// 交易许可状态
const (
	TradingStatusOperable         = "operable"
	TradingStatusRiskElevated     = "risk-elevated"
	TradingStatusPauseRecommended = "pause-recommended"
)

// 状态判定阈值
const (
	limitWarningRatio = 0.8 // 达到限额的80%进入预警

	pauseDrawdownPercent    = 15 // 回撤超过该值建议暂停
	elevatedDrawdownPercent = 10 // 回撤超过该值风险升高

	pauseExposurePercent    = 60 // 敞口超过该值建议暂停
	elevatedExposurePercent = 50 // 敞口超过该值风险升高

	pauseRiskFactor   = 1.5 // 平均风险超过上限该倍数建议暂停
	overtradingFactor = 1.5 // 近期日均交易次数超过历史均值该倍数视为过度交易

	overtradingRecentDays  = 7  // 过度交易检测的近期窗口天数
	overtradingMinSpanDays = 14 // 历史数据不足该天数时不做过度交易判定
)

// GlobalRiskResult 全局风险状态结果
type GlobalRiskResult struct {
	Status  string   `json:"status"`  // ok/warning/blocked
	Reasons []string `json:"reasons"` // 按严重程度排列的原因
}

// TradingStatusDetails 交易许可状态的支撑数据
type TradingStatusDetails struct {
	DrawdownPercent  float64 `json:"drawdown_percent"`
	ExposurePercent  float64 `json:"exposure_percent"`
	AvgRiskPercent   float64 `json:"avg_risk_percent"`
	DailyLossPercent float64 `json:"daily_loss_percent"`
	ViolationCount   int     `json:"violation_count"`
	Overtrading      bool    `json:"overtrading"`
}

// TradingStatusResult 交易许可状态结果，只呈现优先级最高的一条原因
type TradingStatusResult struct {
	Status  string               `json:"status"`
	Reason  string               `json:"reason"`
	Action  string               `json:"action"`
	Details TradingStatusDetails `json:"details"`
}

// GlobalRisk 聚合回撤与当日风险，对照配置限额得出全局风险状态。
// 回撤突破限额时仅在 hard-stop 模式下强制 blocked，否则降级为 warning；
// 任一限额达到80%（未满100%）只会升至 warning，不会压过已有的 blocked。
// 纪律锁生效期间无条件 blocked。
func GlobalRisk(trades []models.Trade, settings models.Settings, now time.Time) GlobalRiskResult {
	r := GlobalRiskResult{Status: GlobalRiskOK, Reasons: []string{}}

	if settings.IsBlocked(now) {
		r.escalate(GlobalRiskBlocked,
			fmt.Sprintf("纪律锁生效中，%s 前禁止交易", settings.Discipline.BlockedUntil.Format("2006-01-02 15:04")))
	}

	dd := Drawdown(trades, settings.InitialCapital)
	if maxDD := settings.RiskManagement.MaxDrawdown; maxDD > 0 {
		switch {
		case dd.CurrentPercent >= maxDD:
			if settings.RiskManagement.DrawdownMode == models.DrawdownModeHardStop {
				r.escalate(GlobalRiskBlocked,
					fmt.Sprintf("回撤%.2f%%已突破上限%.2f%%（hard-stop）", dd.CurrentPercent, maxDD))
			} else {
				r.escalate(GlobalRiskWarning,
					fmt.Sprintf("回撤%.2f%%已突破上限%.2f%%", dd.CurrentPercent, maxDD))
			}
		case dd.CurrentPercent >= maxDD*limitWarningRatio:
			r.escalate(GlobalRiskWarning,
				fmt.Sprintf("回撤%.2f%%已接近上限%.2f%%", dd.CurrentPercent, maxDD))
		}
	}

	daily := DailyLoss(trades, settings.CurrentCapital, now)
	if maxDaily := settings.RiskManagement.MaxDailyRisk; maxDaily > 0 {
		switch {
		case daily.Percent >= maxDaily:
			r.escalate(GlobalRiskBlocked,
				fmt.Sprintf("当日亏损%.2f%%已突破限额%.2f%%", daily.Percent, maxDaily))
		case daily.Percent >= maxDaily*limitWarningRatio:
			r.escalate(GlobalRiskWarning,
				fmt.Sprintf("当日亏损%.2f%%已接近限额%.2f%%", daily.Percent, maxDaily))
		}
	}

	return r
}

// escalate 提升状态，warning 不会覆盖已有的 blocked
func (r *GlobalRiskResult) escalate(status, reason string) {
	if status == GlobalRiskBlocked || r.Status == GlobalRiskOK {
		if r.Status != GlobalRiskBlocked {
			r.Status = status
		}
	}
	r.Reasons = append(r.Reasons, reason)
}

// TradingStatus 自上而下评估优先级决策树，得出交易许可状态。
// 即使多个条件同时命中，也只呈现第一条命中的原因与建议。
func TradingStatus(trades []models.Trade, settings models.Settings, now time.Time) TradingStatusResult {
	dd := Drawdown(trades, settings.InitialCapital)
	exposure := Exposure(trades, settings.CurrentCapital)
	avgRisk := AverageRiskPerTrade(trades, settings.CurrentCapital)
	daily := DailyLoss(trades, settings.CurrentCapital, now)

	violations := 0
	for i := range trades {
		t := trades[i]
		if t.Status != models.TradeStatusOpen {
			continue
		}
		violations += len(EvaluateRules(t, trades, settings).Violations)
	}

	overtrading := detectOvertrading(trades, now)

	details := TradingStatusDetails{
		DrawdownPercent:  dd.CurrentPercent,
		ExposurePercent:  exposure.Percent,
		AvgRiskPercent:   avgRisk,
		DailyLossPercent: daily.Percent,
		ViolationCount:   violations,
		Overtrading:      overtrading,
	}

	maxRisk := settings.RiskManagement.MaxRiskPerTrade
	lossLimit := settings.TradingRules.DailyLossLimit

	build := func(status, reason, action string) TradingStatusResult {
		return TradingStatusResult{Status: status, Reason: reason, Action: action, Details: details}
	}

	// 建议暂停
	switch {
	case lossLimit > 0 && daily.Percent >= lossLimit:
		return build(TradingStatusPauseRecommended,
			fmt.Sprintf("当日亏损%.2f%%已达上限%.2f%%", daily.Percent, lossLimit),
			"今天停止交易，留到明天复盘")
	case dd.CurrentPercent > pauseDrawdownPercent:
		return build(TradingStatusPauseRecommended,
			fmt.Sprintf("账户回撤%.2f%%超过%d%%", dd.CurrentPercent, pauseDrawdownPercent),
			"暂停交易，缩减仓位后重新评估策略")
	case maxRisk > 0 && avgRisk > maxRisk*pauseRiskFactor:
		return build(TradingStatusPauseRecommended,
			fmt.Sprintf("平均单笔风险%.2f%%超过上限%.2f%%的1.5倍", avgRisk, maxRisk),
			"暂停交易，将单笔风险降回上限以内")
	case exposure.Percent > pauseExposurePercent:
		return build(TradingStatusPauseRecommended,
			fmt.Sprintf("持仓风险敞口%.2f%%超过%d%%", exposure.Percent, pauseExposurePercent),
			"暂停开新仓，优先削减现有持仓")
	}

	// 风险升高
	switch {
	case violations > 0:
		return build(TradingStatusRiskElevated,
			fmt.Sprintf("当前存在%d项规则违规", violations),
			"先处理违规持仓，再考虑新交易")
	case overtrading:
		return build(TradingStatusRiskElevated,
			"近期交易频率明显高于历史均值",
			"放慢节奏，只做计划内的交易")
	case dd.CurrentPercent > elevatedDrawdownPercent:
		return build(TradingStatusRiskElevated,
			fmt.Sprintf("账户回撤%.2f%%超过%d%%", dd.CurrentPercent, elevatedDrawdownPercent),
			"降低仓位，收紧止损")
	case maxRisk > 0 && avgRisk > maxRisk:
		return build(TradingStatusRiskElevated,
			fmt.Sprintf("平均单笔风险%.2f%%超过上限%.2f%%", avgRisk, maxRisk),
			"检查仓位计算，控制单笔风险")
	case exposure.Percent > elevatedExposurePercent:
		return build(TradingStatusRiskElevated,
			fmt.Sprintf("持仓风险敞口%.2f%%超过%d%%", exposure.Percent, elevatedExposurePercent),
			"避免继续加仓")
	}

	return build(TradingStatusOperable, "各项风险指标均在限额内", "保持纪律，按计划交易")
}

// detectOvertrading 过度交易检测：近7天日均交易次数超过历史均值的1.5倍。
// 历史跨度不足14天时数据量不够，不做判定。
func detectOvertrading(trades []models.Trade, now time.Time) bool {
	if len(trades) == 0 {
		return false
	}

	first := trades[0].EntryAt
	recent := 0
	for i := range trades {
		t := trades[i]
		if t.EntryAt.Before(first) {
			first = t.EntryAt
		}
		if now.Sub(t.EntryAt) <= overtradingRecentDays*24*time.Hour {
			recent++
		}
	}

	spanDays := now.Sub(first).Hours() / 24
	if spanDays < overtradingMinSpanDays {
		return false
	}

	historicalAvg := float64(len(trades)) / spanDays
	recentAvg := float64(recent) / overtradingRecentDays
	return recentAvg > historicalAvg*overtradingFactor
}
