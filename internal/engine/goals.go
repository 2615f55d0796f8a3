package engine

import (
	"time"

	"github.com/dushixiang/ballast/internal/models"
)

// minRiskPerTradePercent 风险缩减后的单笔风险下限
const minRiskPerTradePercent = 0.1

// repeatedFailureThreshold 累计失败达到该次数即视为重复失败模式
const repeatedFailureThreshold = 3

// SettingsPatch 由约束性目标失败产生的配置变更建议。
// 引擎只返回变更，由调用方负责持久化；nil 字段表示不变更。
type SettingsPatch struct {
	BlockedUntil      *time.Time `json:"blocked_until,omitempty"`      // 冷静期截止时间（只会延长，不会缩短）
	DisciplineEnabled *bool      `json:"discipline_enabled,omitempty"` // 强制开启纪律锁
	RiskPerTrade      *float64   `json:"risk_per_trade,omitempty"`     // 缩减后的单笔风险百分比
}

// IsEmpty 判断是否为空变更
func (p SettingsPatch) IsEmpty() bool {
	return p.BlockedUntil == nil && p.DisciplineEnabled == nil && p.RiskPerTrade == nil
}

// GoalInput 目标评估输入。引擎在多次调用之间不保存状态，
// 上一轮进度值与当天已生成记录的去重键都由调用方提供。
type GoalInput struct {
	Goals    []models.TradingGoal
	Previous map[string]float64 // goalID -> 上一轮进度值
	Trades   []models.Trade
	Settings models.Settings

	EmittedInsights    map[string]bool // goalID|dayKey -> 当天已生成洞察
	EmittedPostMortems map[string]bool // goalID|dayKey -> 当天已生成复盘
	Now                time.Time
}

// GoalOutcome 单个目标的评估结果
type GoalOutcome struct {
	Goal         models.TradingGoal // 更新失败记录后的目标副本
	Transitioned bool               // 本轮是否发生失败跃迁
	Insight      *InsightDraft
	PostMortem   *PostMortemDraft
	Patch        *SettingsPatch
}

// DayKey 返回日粒度去重键
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// dedupKey 组合目标与日期的去重键
func dedupKey(goalID string, now time.Time) string {
	return goalID + "|" + DayKey(now)
}

// EvaluateGoals 对全部目标执行一轮状态机评估。
// 失败跃迁定义为 !wasFailing && isNowFailing：只有从通过转入失败的瞬间
// 才会产生洞察与后果，持续处于失败状态不重复触发。
// 洞察与复盘各自受“每目标每天最多一条”约束，重复触发被静默抑制。
func EvaluateGoals(in GoalInput) []GoalOutcome {
	outcomes := make([]GoalOutcome, 0, len(in.Goals))

	for i := range in.Goals {
		goal := in.Goals[i]
		outcome := GoalOutcome{Goal: goal}

		if goal.Completed || !goal.IsActive(in.Now) {
			outcomes = append(outcomes, outcome)
			continue
		}

		prev := in.Previous[goal.ID]
		wasFailing := goal.IsFailingAt(prev)
		isNowFailing := goal.IsFailingAt(goal.Current)

		if !wasFailing && isNowFailing {
			outcome.Transitioned = true

			now := in.Now
			goal.FailureCount++
			if goal.FailedAt == nil {
				goal.FailedAt = &now
			}
			goal.LastFailedAt = &now

			key := dedupKey(goal.ID, in.Now)
			if !in.EmittedInsights[key] {
				insight := BuildInsight(goal, in.Trades, in.Now)
				outcome.Insight = &insight
			}
			if (goal.IsBinding || goal.FailureCount >= repeatedFailureThreshold) && !in.EmittedPostMortems[key] {
				pm := BuildPostMortem(goal, in.Trades, in.Settings, in.Now)
				outcome.PostMortem = &pm
			}

			// 约束性目标从通过转入失败时计算配置后果
			if goal.IsBinding {
				if patch := buildConsequences(goal, in.Settings, in.Now); !patch.IsEmpty() {
					outcome.Patch = &patch
				}
			}

			outcome.Goal = goal
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// buildConsequences 计算约束性目标失败的配置变更。
// 冷静期只会把 blockedUntil 向后延长，已有的更晚锁定时间保持不变；
// 风险缩减按 (1 − pct/100) 相乘，下限0.1%。
func buildConsequences(goal models.TradingGoal, settings models.Settings, now time.Time) SettingsPatch {
	patch := SettingsPatch{}

	if goal.CooldownHours > 0 {
		until := now.Add(time.Duration(goal.CooldownHours) * time.Hour)
		if cur := settings.Discipline.BlockedUntil; cur != nil && cur.After(until) {
			until = *cur
		}
		enabled := true
		patch.BlockedUntil = &until
		patch.DisciplineEnabled = &enabled
	}

	if goal.ReduceRiskPercent > 0 {
		risk := settings.RiskPerTrade * (1 - goal.ReduceRiskPercent/100)
		if risk < minRiskPerTradePercent {
			risk = minRiskPerTradePercent
		}
		patch.RiskPerTrade = &risk
	}

	return patch
}
