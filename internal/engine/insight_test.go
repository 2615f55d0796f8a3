package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/stretchr/testify/assert"
)

// windowClosedTrades 构造落在每日目标窗口内的已平仓交易序列
func windowClosedTrades(goal models.TradingGoal, pnls []float64) []models.Trade {
	trades := make([]models.Trade, 0, len(pnls))
	for i, pnl := range pnls {
		exitAt := goal.StartAt.Add(time.Duration(i+1) * time.Hour)
		trade := closedTrade(fmt.Sprintf("t%d", i), pnl, exitAt)
		trade.EntryAt = goal.StartAt.Add(time.Duration(i) * time.Hour)
		trades = append(trades, trade)
	}
	return trades
}

func TestInferCauseGenericWhenTooFewClosed(t *testing.T) {
	goal := numTradesGoal(3)
	trades := windowClosedTrades(goal, []float64{-100, -100, -100, -100})

	cause, _ := inferCause(goal, trades, baseTime)

	assert.Equal(t, CauseGeneric, cause)
}

func TestInferCauseRecentLoss(t *testing.T) {
	goal := pnlGoal(100)
	// 最近三笔平仓中有亏损
	trades := windowClosedTrades(goal, []float64{50, 50, 50, 50, -80})

	cause, _ := inferCause(goal, trades, baseTime)

	assert.Equal(t, CauseRecentLoss, cause)
}

func TestInferCauseRecentLossIgnoresOldLosses(t *testing.T) {
	goal := pnlGoal(100)
	// 亏损发生在早期，最近三笔全部盈利
	trades := windowClosedTrades(goal, []float64{-80, -80, 50, 50, 50})

	cause, _ := inferCause(goal, trades, baseTime)

	assert.NotEqual(t, CauseRecentLoss, cause)
}

func TestInferCauseOvertradingOnlyForNumTrades(t *testing.T) {
	pnls := make([]float64, 8)
	for i := range pnls {
		pnls[i] = 10
	}

	// 每日窗口内8笔全部盈利，日均超过3笔
	numGoal := numTradesGoal(3)
	cause, _ := inferCause(numGoal, windowClosedTrades(numGoal, pnls), baseTime)
	assert.Equal(t, CauseOvertrading, cause)

	// 同样的账本对盈亏目标不触发频率判定
	profitGoal := pnlGoal(1000)
	profitGoal.StartAt = numGoal.StartAt
	profitGoal.EndAt = numGoal.EndAt
	cause, _ = inferCause(profitGoal, windowClosedTrades(profitGoal, pnls), baseTime)
	assert.Equal(t, CauseGeneric, cause)
}

func TestInferCauseEmotional(t *testing.T) {
	goal := pnlGoal(100)
	trades := windowClosedTrades(goal, []float64{10, 10, 10, 10, 10})
	for i := range trades {
		trades[i].EmotionBefore = "revenge"
		trades[i].EmotionDuring = "anxious"
	}
	trades[0].EmotionBefore = "calm"

	cause, _ := inferCause(goal, trades, baseTime)

	assert.Equal(t, CauseEmotional, cause)
}

func TestInferCauseGenericFallback(t *testing.T) {
	goal := pnlGoal(1000)
	trades := windowClosedTrades(goal, []float64{10, 10, 10, 10, 10})
	for i := range trades {
		trades[i].EmotionBefore = "calm"
	}

	cause, message := inferCause(goal, trades, baseTime)

	assert.Equal(t, CauseGeneric, cause)
	assert.NotEmpty(t, message)
}

func TestBuildInsightSeverityFollowsBinding(t *testing.T) {
	goal := pnlGoal(100)
	goal.Current = -50

	insight := BuildInsight(goal, nil, baseTime)
	assert.Equal(t, models.InsightSeverityWarning, insight.Severity)
	assert.Equal(t, DayKey(baseTime), insight.DayKey)
	assert.NotEmpty(t, insight.Message)
	assert.NotEmpty(t, insight.Question)

	goal.IsBinding = true
	insight = BuildInsight(goal, nil, baseTime)
	assert.Equal(t, models.InsightSeverityCritical, insight.Severity)
}

func TestBuildInsightQuestionMatchesMetricAndCause(t *testing.T) {
	goal := pnlGoal(100)
	trades := windowClosedTrades(goal, []float64{50, 50, 50, 50, -80})

	insight := BuildInsight(goal, trades, baseTime)

	assert.Equal(t, CauseRecentLoss, insight.Cause)
	assert.Equal(t, "亏损之后你是否急于回本而偏离了交易计划？", insight.Question)
}

func TestBuildPostMortemCollectsDistinctViolatedRules(t *testing.T) {
	settings := testSettings()
	settings.TradingRules.MaxLotSize = 0.5
	settings.TradingRules.TradingHoursEnabled = true
	settings.TradingRules.TradingHourStart = 9
	settings.TradingRules.TradingHourEnd = 17

	goal := pnlGoal(100)
	goal.StartAt = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	goal.EndAt = goal.StartAt.Add(7 * 24 * time.Hour)

	// 两笔超仓交易（重复规则只记一次），一笔盘前开仓
	trades := []models.Trade{}
	for i := 0; i < 2; i++ {
		exitAt := goal.StartAt.Add(time.Duration(12+i) * time.Hour)
		trade := closedTrade(fmt.Sprintf("lot%d", i), -50, exitAt)
		trade.EntryAt = goal.StartAt.Add(time.Duration(10+i) * time.Hour)
		trade.Quantity = 1
		trades = append(trades, trade)
	}
	early := closedTrade("early", -50, goal.StartAt.Add(30*time.Hour))
	early.EntryAt = goal.StartAt.Add(28 * time.Hour) // 次日4点
	early.Quantity = 0.3
	trades = append(trades, early)

	pm := BuildPostMortem(goal, trades, settings, baseTime)

	assert.Equal(t, []string{RuleMaxLotSize, RuleTradingHours}, pm.ViolatedRuleKeys)
	assert.Empty(t, pm.HistoricalPattern)
	assert.NotEmpty(t, pm.Summary)
}

func TestBuildPostMortemHistoricalPattern(t *testing.T) {
	goal := pnlGoal(100)
	goal.FailureCount = 4

	pm := BuildPostMortem(goal, nil, testSettings(), baseTime)

	assert.Contains(t, pm.HistoricalPattern, "4")
}
