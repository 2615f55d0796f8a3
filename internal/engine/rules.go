package engine

import (
	"fmt"
	"strconv"

	"github.com/dushixiang/ballast/internal/models"
)

// 规则标识
const (
	RuleMaxTradesPerDay  = "max-trades-per-day"
	RuleMaxTradesPerWeek = "max-trades-per-week"
	RuleTradingHours     = "trading-hours"
	RuleMaxLotSize       = "max-lot-size"
	RuleRiskPerTrade     = "risk-per-trade"
	RuleMinRiskReward    = "min-risk-reward"
)

// 违规严重级别
const (
	SeverityCritical = "critical"
	SeverityMinor    = "minor"
)

// 规则整体状态
const (
	RuleStatusClean             = "clean"
	RuleStatusMinorViolation    = "minor-violation"
	RuleStatusCriticalViolation = "critical-violation"
)

// riskEscalateFactor 风险超过上限多少倍后升级为严重违规
const riskEscalateFactor = 1.5

// Violation 规则违规明细
type Violation struct {
	Rule     string `json:"rule"`     // 规则标识
	Label    string `json:"label"`    // 规则名称
	Expected string `json:"expected"` // 期望值
	Actual   string `json:"actual"`   // 实际值
	Severity string `json:"severity"` // critical/minor
	Message  string `json:"message"`  // 违规描述
}

// RuleCheck 单条规则的评估结果
type RuleCheck struct {
	Rule      string     `json:"rule"`
	Label     string     `json:"label"`
	Respected bool       `json:"respected"`
	Violation *Violation `json:"violation,omitempty"`
}

// RuleResult 一次完整的规则评估结果
type RuleResult struct {
	Checks     []RuleCheck `json:"checks"`     // 按固定顺序排列的全部规则
	Violations []Violation `json:"violations"` // 其中的违规项
	Status     string      `json:"status"`     // clean/minor-violation/critical-violation
}

// EvaluateRules 对一笔交易在其账本上下文中评估全部纪律规则。
// 时间上下文全部取自交易自身的开仓时间，因此对历史交易的重复评估是幂等的。
// 所有规则每次都会评估，互不短路。
func EvaluateRules(trade models.Trade, ledger []models.Trade, settings models.Settings) RuleResult {
	r := RuleResult{}

	r.append(checkMaxTradesPerDay(trade, ledger, settings))
	r.append(checkMaxTradesPerWeek(trade, ledger, settings))
	r.append(checkTradingHours(trade, settings))
	r.append(checkMaxLotSize(trade, settings))
	r.append(checkRiskPerTrade(trade, settings))
	r.append(checkMinRiskReward(trade, settings))

	r.Status = RuleStatusClean
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			r.Status = RuleStatusCriticalViolation
			break
		}
		r.Status = RuleStatusMinorViolation
	}
	return r
}

func (r *RuleResult) append(c RuleCheck) {
	r.Checks = append(r.Checks, c)
	if c.Violation != nil {
		r.Violations = append(r.Violations, *c.Violation)
	}
}

func respected(rule, label string) RuleCheck {
	return RuleCheck{Rule: rule, Label: label, Respected: true}
}

func violated(rule, label, expected, actual, severity, message string) RuleCheck {
	return RuleCheck{
		Rule:  rule,
		Label: label,
		Violation: &Violation{
			Rule:     rule,
			Label:    label,
			Expected: expected,
			Actual:   actual,
			Severity: severity,
			Message:  message,
		},
	}
}

// checkMaxTradesPerDay 单日交易次数上限，统计同一自然日的其他交易
func checkMaxTradesPerDay(trade models.Trade, ledger []models.Trade, settings models.Settings) RuleCheck {
	const label = "单日交易次数上限"
	max := settings.TradingRules.MaxTradesPerDay
	if max <= 0 {
		return respected(RuleMaxTradesPerDay, label)
	}

	others := 0
	for i := range ledger {
		t := ledger[i]
		if t.ID == trade.ID {
			continue
		}
		if sameDay(t.EntryAt, trade.EntryAt) {
			others++
		}
	}

	actual := others + 1
	if actual > max {
		return violated(RuleMaxTradesPerDay, label,
			strconv.Itoa(max), strconv.Itoa(actual), SeverityCritical,
			fmt.Sprintf("当日第%d笔交易，超过单日上限%d笔", actual, max))
	}
	return respected(RuleMaxTradesPerDay, label)
}

// checkMaxTradesPerWeek 单周交易次数上限，按ISO周统计
func checkMaxTradesPerWeek(trade models.Trade, ledger []models.Trade, settings models.Settings) RuleCheck {
	const label = "单周交易次数上限"
	max := settings.TradingRules.MaxTradesPerWeek
	if max <= 0 {
		return respected(RuleMaxTradesPerWeek, label)
	}

	year, week := trade.EntryAt.ISOWeek()
	others := 0
	for i := range ledger {
		t := ledger[i]
		if t.ID == trade.ID {
			continue
		}
		if y, w := t.EntryAt.ISOWeek(); y == year && w == week {
			others++
		}
	}

	actual := others + 1
	if actual > max {
		return violated(RuleMaxTradesPerWeek, label,
			strconv.Itoa(max), strconv.Itoa(actual), SeverityCritical,
			fmt.Sprintf("本周第%d笔交易，超过单周上限%d笔", actual, max))
	}
	return respected(RuleMaxTradesPerWeek, label)
}

// checkTradingHours 允许交易时段 [start, end)，按开仓本地小时判断
func checkTradingHours(trade models.Trade, settings models.Settings) RuleCheck {
	const label = "允许交易时段"
	rules := settings.TradingRules
	if !rules.TradingHoursEnabled {
		return respected(RuleTradingHours, label)
	}

	hour := trade.EntryAt.Hour()
	if hour < rules.TradingHourStart || hour >= rules.TradingHourEnd {
		return violated(RuleTradingHours, label,
			fmt.Sprintf("[%d:00, %d:00)", rules.TradingHourStart, rules.TradingHourEnd),
			fmt.Sprintf("%d:00", hour), SeverityCritical,
			fmt.Sprintf("开仓时间%d点不在允许时段 [%d:00, %d:00) 内", hour, rules.TradingHourStart, rules.TradingHourEnd))
	}
	return respected(RuleTradingHours, label)
}

// checkMaxLotSize 最大仓位限制
func checkMaxLotSize(trade models.Trade, settings models.Settings) RuleCheck {
	const label = "最大仓位限制"
	max := settings.TradingRules.MaxLotSize
	if max <= 0 {
		return respected(RuleMaxLotSize, label)
	}

	if trade.Quantity > max {
		return violated(RuleMaxLotSize, label,
			formatFloat(max), formatFloat(trade.Quantity), SeverityCritical,
			fmt.Sprintf("仓位%s超过上限%s", formatFloat(trade.Quantity), formatFloat(max)))
	}
	return respected(RuleMaxLotSize, label)
}

// checkRiskPerTrade 单笔风险限制；未设置止损时跳过（不视为违规）。
// 实际风险超过上限1.5倍才升级为严重违规，否则为轻微违规。
func checkRiskPerTrade(trade models.Trade, settings models.Settings) RuleCheck {
	const label = "单笔风险限制"
	max := settings.RiskManagement.MaxRiskPerTrade
	if max <= 0 || trade.StopLoss == nil {
		return respected(RuleRiskPerTrade, label)
	}

	actual := TradeRiskPercent(trade, settings.CurrentCapital)
	if actual <= max {
		return respected(RuleRiskPerTrade, label)
	}

	severity := SeverityMinor
	if actual > max*riskEscalateFactor {
		severity = SeverityCritical
	}
	return violated(RuleRiskPerTrade, label,
		fmt.Sprintf("%.2f%%", max), fmt.Sprintf("%.2f%%", actual), severity,
		fmt.Sprintf("单笔风险%.2f%%超过上限%.2f%%", actual, max))
}

// checkMinRiskReward 最低风报比要求；无法计算风报比时跳过
func checkMinRiskReward(trade models.Trade, settings models.Settings) RuleCheck {
	const label = "最低风报比要求"

	rr := trade.RiskReward
	if rr == nil {
		rr = trade.ComputeRiskReward()
	}
	if rr == nil {
		return respected(RuleMinRiskReward, label)
	}

	min := settings.TradingRules.MinRiskReward
	if min <= 0 {
		min = 1.0
	}

	if *rr < min {
		return violated(RuleMinRiskReward, label,
			fmt.Sprintf("%.1f", min), fmt.Sprintf("%.2f", *rr), SeverityMinor,
			fmt.Sprintf("风报比%.2f低于最低要求%.1f", *rr, min))
	}
	return respected(RuleMinRiskReward, label)
}

// formatFloat 去除无意义的小数尾零
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
