package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/dushixiang/ballast/internal/models"
)

// 失败原因键
const (
	CauseRecentLoss  = "recent-loss" // 近期亏损后发生
	CauseOvertrading = "overtrading" // 交易频率高于历史均值
	CauseEmotional   = "emotional"   // 负面情绪模式
	CauseGeneric     = "generic"     // 数据不足或无明显模式
)

const (
	// minClosedForInference 推断原因所需的最少已平仓交易数，不足时只给出通用原因
	minClosedForInference = 5
	// recentLossLookback 近期亏损检查回看的平仓笔数
	recentLossLookback = 3
	// overtradingDailyAverage 窗口期日均交易次数超过该值视为频率过高
	overtradingDailyAverage = 3.0
)

// negativeEmotions 固定的负面情绪集合
var negativeEmotions = map[string]bool{
	"anxious":    true,
	"fearful":    true,
	"greedy":     true,
	"revenge":    true,
	"fomo":       true,
	"angry":      true,
	"frustrated": true,
	"impatient":  true,
}

// InsightDraft 洞察草稿，由调用方补充ID后落库
type InsightDraft struct {
	GoalID   string `json:"goal_id"`
	DayKey   string `json:"day_key"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
	Message  string `json:"message"`
	Question string `json:"question"`
}

// PostMortemDraft 复盘草稿
type PostMortemDraft struct {
	GoalID            string   `json:"goal_id"`
	DayKey            string   `json:"day_key"`
	Summary           string   `json:"summary"`
	ViolatedRuleKeys  []string `json:"violated_rule_keys"`
	HistoricalPattern string   `json:"historical_pattern"`
}

// BuildInsight 将一次目标失败跃迁转化为结构化洞察
func BuildInsight(goal models.TradingGoal, trades []models.Trade, now time.Time) InsightDraft {
	cause, causeMessage := inferCause(goal, trades, now)

	severity := models.InsightSeverityWarning
	if goal.IsBinding {
		severity = models.InsightSeverityCritical
	}

	message := fmt.Sprintf("%s%s目标未达成：当前 %s，目标 %s。%s",
		periodLabel(goal.Period), metricLabel(goal.Metric),
		formatFloat(goal.Current), formatFloat(goal.Target), causeMessage)

	return InsightDraft{
		GoalID:   goal.ID,
		DayKey:   DayKey(now),
		Severity: severity,
		Cause:    cause,
		Message:  message,
		Question: questionFor(goal.Metric, cause),
	}
}

// BuildPostMortem 生成深度复盘：重跑窗口内已平仓交易的规则评估，
// 汇总触犯过的规则，并检查历史上的重复失败模式。
func BuildPostMortem(goal models.TradingGoal, trades []models.Trade, settings models.Settings, now time.Time) PostMortemDraft {
	cause, causeMessage := inferCause(goal, trades, now)

	violatedSet := make(map[string]bool)
	for _, t := range windowTrades(goal, trades) {
		if !t.IsClosed() {
			continue
		}
		result := EvaluateRules(t, trades, settings)
		for _, v := range result.Violations {
			violatedSet[v.Rule] = true
		}
	}

	keys := make([]string, 0, len(violatedSet))
	for k := range violatedSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pattern := ""
	if goal.FailureCount >= repeatedFailureThreshold {
		pattern = fmt.Sprintf("该目标已累计失败%d次，存在重复失败模式", goal.FailureCount)
	}

	summary := fmt.Sprintf("%s%s目标失败复盘：当前 %s，目标 %s；推断原因（%s）：%s。窗口期内触犯规则%d项。",
		periodLabel(goal.Period), metricLabel(goal.Metric),
		formatFloat(goal.Current), formatFloat(goal.Target),
		cause, causeMessage, len(keys))

	return PostMortemDraft{
		GoalID:            goal.ID,
		DayKey:            DayKey(now),
		Summary:           summary,
		ViolatedRuleKeys:  keys,
		HistoricalPattern: pattern,
	}
}

// inferCause 按固定优先级推断失败原因：
// 近期亏损 → 频率过高（仅交易次数目标） → 负面情绪 → 通用兜底。
// 窗口内已平仓交易不足5笔时不做推断，直接给出通用原因。
func inferCause(goal models.TradingGoal, trades []models.Trade, now time.Time) (string, string) {
	window := windowTrades(goal, trades)
	closed := closedTradesByExit(window)

	if len(closed) < minClosedForInference {
		return CauseGeneric, "样本不足，暂无明显行为模式"
	}

	// (a) 最近几笔平仓中出现亏损
	start := len(closed) - recentLossLookback
	if start < 0 {
		start = 0
	}
	for _, t := range closed[start:] {
		if t.Pnl != nil && *t.Pnl < 0 {
			return CauseRecentLoss, "失败发生在近期亏损之后"
		}
	}

	// (b) 交易次数目标：窗口期日均交易次数过高
	if goal.Metric == models.GoalMetricNumTrades {
		days := elapsedDays(goal.StartAt, minTime(goal.EndAt, now))
		if avg := float64(len(window)) / days; avg > overtradingDailyAverage {
			return CauseOvertrading, "交易频率高于历史平均水平"
		}
	}

	// (c) 负面情绪占比过半
	total, negative := 0, 0
	for _, t := range window {
		for _, emotion := range []string{t.EmotionBefore, t.EmotionDuring} {
			if emotion == "" {
				continue
			}
			total++
			if negativeEmotions[emotion] {
				negative++
			}
		}
	}
	if total > 0 && negative*2 > total {
		return CauseEmotional, "窗口期内记录的负面情绪占比过半"
	}

	return CauseGeneric, "目标进度未达预期"
}

// questionFor 按目标类型与推断原因选取行动反思问题
func questionFor(metric, cause string) string {
	questions := map[string]map[string]string{
		models.GoalMetricPnl: {
			CauseRecentLoss: "亏损之后你是否急于回本而偏离了交易计划？",
			CauseEmotional:  "哪些情绪让你偏离了原定的进出场条件？",
			CauseGeneric:    "本周期的亏损交易里，有多少笔在开仓前就不符合计划？",
		},
		models.GoalMetricWinRate: {
			CauseRecentLoss: "连续亏损后你是否降低了入场标准？",
			CauseEmotional:  "情绪波动时你的胜率是否明显下降？",
			CauseGeneric:    "失败的交易里有没有共同的入场特征？",
		},
		models.GoalMetricNumTrades: {
			CauseOvertrading: "哪些交易是计划之外的？下次如何忍住不下单？",
			CauseRecentLoss:  "亏损之后你是否通过加量交易来弥补？",
			CauseGeneric:     "超出的那几笔交易当时的理由是什么？",
		},
	}

	if byMetric, ok := questions[metric]; ok {
		if q, ok := byMetric[cause]; ok {
			return q
		}
		if q, ok := byMetric[CauseGeneric]; ok {
			return q
		}
	}
	return "这次失败暴露了交易计划中的哪个薄弱环节？"
}

// windowTrades 返回开仓时间落在目标有效期内的交易
func windowTrades(goal models.TradingGoal, trades []models.Trade) []models.Trade {
	result := make([]models.Trade, 0, len(trades))
	for i := range trades {
		t := trades[i]
		if !t.EntryAt.Before(goal.StartAt) && t.EntryAt.Before(goal.EndAt) {
			result = append(result, t)
		}
	}
	return result
}

// metricLabel 指标中文名
func metricLabel(metric string) string {
	switch metric {
	case models.GoalMetricPnl:
		return "盈亏"
	case models.GoalMetricWinRate:
		return "胜率"
	case models.GoalMetricNumTrades:
		return "交易次数"
	}
	return metric
}

// periodLabel 周期中文名
func periodLabel(period string) string {
	switch period {
	case models.GoalPeriodDaily:
		return "每日"
	case models.GoalPeriodWeekly:
		return "每周"
	case models.GoalPeriodMonthly:
		return "每月"
	case models.GoalPeriodYearly:
		return "每年"
	}
	return period
}

// elapsedDays 计算已经过的天数，最少按1天计
func elapsedDays(start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
