package engine

import (
	"testing"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numTradesGoal(target float64) models.TradingGoal {
	return models.TradingGoal{
		ID:      "g1",
		Period:  models.GoalPeriodDaily,
		Metric:  models.GoalMetricNumTrades,
		Target:  target,
		StartAt: baseTime.Add(-12 * time.Hour),
		EndAt:   baseTime.Add(12 * time.Hour),
	}
}

func pnlGoal(target float64) models.TradingGoal {
	return models.TradingGoal{
		ID:      "g2",
		Period:  models.GoalPeriodWeekly,
		Metric:  models.GoalMetricPnl,
		Target:  target,
		StartAt: baseTime.Add(-3 * 24 * time.Hour),
		EndAt:   baseTime.Add(4 * 24 * time.Hour),
	}
}

func evalOne(goal models.TradingGoal, prev float64, settings models.Settings) GoalOutcome {
	outcomes := EvaluateGoals(GoalInput{
		Goals:              []models.TradingGoal{goal},
		Previous:           map[string]float64{goal.ID: prev},
		Settings:           settings,
		EmittedInsights:    map[string]bool{},
		EmittedPostMortems: map[string]bool{},
		Now:                baseTime,
	})
	return outcomes[0]
}

func TestGoalFailureTransition(t *testing.T) {
	// 交易次数目标为“不超过型”：恰好达到目标值不算失败，超过才失败
	goal := numTradesGoal(5)
	goal.Current = 6

	outcome := evalOne(goal, 5, testSettings())

	assert.True(t, outcome.Transitioned)
	assert.Equal(t, 1, outcome.Goal.FailureCount)
	require.NotNil(t, outcome.Goal.FailedAt)
	require.NotNil(t, outcome.Goal.LastFailedAt)
	require.NotNil(t, outcome.Insight)
	assert.Equal(t, "g1", outcome.Insight.GoalID)
	assert.Equal(t, DayKey(baseTime), outcome.Insight.DayKey)
	assert.Nil(t, outcome.PostMortem) // 非约束且失败次数未达阈值
	assert.Nil(t, outcome.Patch)
}

func TestGoalNoRetriggerWhileStillFailing(t *testing.T) {
	goal := numTradesGoal(5)
	goal.Current = 7
	goal.FailureCount = 1

	outcome := evalOne(goal, 6, testSettings())

	assert.False(t, outcome.Transitioned)
	assert.Equal(t, 1, outcome.Goal.FailureCount)
	assert.Nil(t, outcome.Insight)
}

func TestGoalExactTargetNotFailing(t *testing.T) {
	goal := numTradesGoal(5)
	goal.Current = 5

	outcome := evalOne(goal, 3, testSettings())

	assert.False(t, outcome.Transitioned)
}

func TestGoalReachTypeFailsBelowTarget(t *testing.T) {
	// 盈亏目标为“达到型”：低于目标即失败
	goal := pnlGoal(100)
	goal.Current = -50

	outcome := evalOne(goal, 150, testSettings())

	assert.True(t, outcome.Transitioned)
}

func TestGoalSkipsCompletedAndInactive(t *testing.T) {
	completed := numTradesGoal(5)
	completed.Completed = true
	completed.Current = 10

	expired := numTradesGoal(5)
	expired.ID = "g3"
	expired.EndAt = baseTime.Add(-time.Hour)
	expired.Current = 10

	outcomes := EvaluateGoals(GoalInput{
		Goals:              []models.TradingGoal{completed, expired},
		Previous:           map[string]float64{"g1": 0, "g3": 0},
		Settings:           testSettings(),
		EmittedInsights:    map[string]bool{},
		EmittedPostMortems: map[string]bool{},
		Now:                baseTime,
	})

	for _, outcome := range outcomes {
		assert.False(t, outcome.Transitioned)
		assert.Nil(t, outcome.Insight)
	}
}

func TestGoalInsightSuppressedByDailyDedup(t *testing.T) {
	goal := numTradesGoal(5)
	goal.Current = 6

	outcomes := EvaluateGoals(GoalInput{
		Goals:    []models.TradingGoal{goal},
		Previous: map[string]float64{"g1": 5},
		Settings: testSettings(),
		EmittedInsights: map[string]bool{
			"g1|" + DayKey(baseTime): true,
		},
		EmittedPostMortems: map[string]bool{},
		Now:                baseTime,
	})

	outcome := outcomes[0]
	assert.True(t, outcome.Transitioned) // 失败记录仍然更新
	assert.Equal(t, 1, outcome.Goal.FailureCount)
	assert.Nil(t, outcome.Insight) // 当天已有洞察，静默抑制
}

func TestBindingGoalConsequences(t *testing.T) {
	goal := pnlGoal(100)
	goal.IsBinding = true
	goal.CooldownHours = 6
	goal.ReduceRiskPercent = 25
	goal.Current = -50

	outcome := evalOne(goal, 150, testSettings())

	require.NotNil(t, outcome.Patch)
	require.NotNil(t, outcome.Patch.BlockedUntil)
	assert.Equal(t, baseTime.Add(6*time.Hour), *outcome.Patch.BlockedUntil)
	require.NotNil(t, outcome.Patch.DisciplineEnabled)
	assert.True(t, *outcome.Patch.DisciplineEnabled)
	require.NotNil(t, outcome.Patch.RiskPerTrade)
	assert.InDelta(t, 0.75, *outcome.Patch.RiskPerTrade, 1e-9) // 1% × (1 − 25%)

	// 约束性目标失败必定产生复盘
	require.NotNil(t, outcome.PostMortem)
}

func TestBindingGoalKeepsLaterExistingLock(t *testing.T) {
	settings := testSettings()
	existing := baseTime.Add(48 * time.Hour)
	settings.Discipline.BlockedUntil = &existing

	goal := pnlGoal(100)
	goal.IsBinding = true
	goal.CooldownHours = 6
	goal.Current = -50

	outcome := evalOne(goal, 150, settings)

	require.NotNil(t, outcome.Patch)
	require.NotNil(t, outcome.Patch.BlockedUntil)
	// 已有更晚的锁定时间时不缩短
	assert.Equal(t, existing, *outcome.Patch.BlockedUntil)
}

func TestBindingGoalRiskReductionFloor(t *testing.T) {
	settings := testSettings()
	settings.RiskPerTrade = 0.2

	goal := pnlGoal(100)
	goal.IsBinding = true
	goal.ReduceRiskPercent = 95
	goal.Current = -50

	outcome := evalOne(goal, 150, settings)

	require.NotNil(t, outcome.Patch)
	require.NotNil(t, outcome.Patch.RiskPerTrade)
	assert.Equal(t, 0.1, *outcome.Patch.RiskPerTrade)
}

func TestRepeatedFailureTriggersPostMortem(t *testing.T) {
	// 第3次失败时即使是非约束性目标也产生复盘
	goal := numTradesGoal(5)
	goal.Current = 6
	goal.FailureCount = 2
	firstFailed := baseTime.Add(-5 * 24 * time.Hour)
	goal.FailedAt = &firstFailed

	outcome := evalOne(goal, 5, testSettings())

	assert.True(t, outcome.Transitioned)
	assert.Equal(t, 3, outcome.Goal.FailureCount)
	require.NotNil(t, outcome.PostMortem)
	assert.Contains(t, outcome.PostMortem.HistoricalPattern, "3")
	// 首次失败时间保持不变，最近失败时间更新
	assert.Equal(t, firstFailed, *outcome.Goal.FailedAt)
	assert.Equal(t, baseTime, *outcome.Goal.LastFailedAt)
}

func TestSettingsPatchIsEmpty(t *testing.T) {
	assert.True(t, SettingsPatch{}.IsEmpty())

	enabled := true
	assert.False(t, SettingsPatch{DisciplineEnabled: &enabled}.IsEmpty())
}

func TestDayKeyFormat(t *testing.T) {
	assert.Equal(t, "2026-03-10", DayKey(baseTime))
}
