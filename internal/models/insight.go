package models

import (
	"time"

	"gorm.io/datatypes"
)

// 洞察严重级别
const (
	InsightSeverityCritical = "critical"
	InsightSeverityWarning  = "warning"
)

// GoalInsight 目标失败洞察（追加写入，每个目标每天最多一条）
type GoalInsight struct {
	ID       string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	GoalID   string `gorm:"type:varchar(26);not null;index;uniqueIndex:uk_insight_goal_day,priority:1" json:"goal_id"`
	DayKey   string `gorm:"type:varchar(10);not null;uniqueIndex:uk_insight_goal_day,priority:2" json:"day_key"` // 日期键 2006-01-02
	Severity string `gorm:"type:varchar(10);not null" json:"severity"`                                           // critical/warning
	Cause    string `gorm:"type:varchar(20);not null" json:"cause"`                                              // 推断原因键
	Message  string `gorm:"type:varchar(500)" json:"message"`                                                    // 失败描述
	Question string `gorm:"type:varchar(500)" json:"question"`                                                   // 行动反思问题

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (GoalInsight) TableName() string {
	return "goal_insights"
}

// GoalPostMortem 目标失败复盘（追加写入，每个目标每天最多一条）
type GoalPostMortem struct {
	ID       string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	GoalID   string `gorm:"type:varchar(26);not null;index;uniqueIndex:uk_pm_goal_day,priority:1" json:"goal_id"`
	DayKey   string `gorm:"type:varchar(10);not null;uniqueIndex:uk_pm_goal_day,priority:2" json:"day_key"`
	Summary  string `gorm:"type:varchar(1000)" json:"summary"` // 复盘摘要

	ViolatedRuleKeys  datatypes.JSONSlice[string] `gorm:"type:json" json:"violated_rule_keys"`         // 窗口内触犯过的规则
	HistoricalPattern string                      `gorm:"type:varchar(500)" json:"historical_pattern"` // 历史模式备注

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (GoalPostMortem) TableName() string {
	return "goal_post_mortems"
}
