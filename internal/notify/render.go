package notify

import (
	"strings"

	"github.com/dushixiang/ballast/internal/engine"
	"github.com/dushixiang/ballast/internal/models"
	"github.com/valyala/fasttemplate"
)

const insightTemplate = `⚠️ *目标失败洞察*
严重级别: {{severity}}
{{message}}
推断原因: {{cause}}
反思: {{question}}`

const postMortemTemplate = `📋 *目标失败复盘*
{{summary}}
触犯规则: {{violated}}
{{pattern}}`

const statusTemplate = `📊 *交易许可状态*
状态: {{status}}
原因: {{reason}}
建议: {{action}}`

// RenderInsight 渲染洞察通知消息
func RenderInsight(insight models.GoalInsight) string {
	tmpl := fasttemplate.New(insightTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"severity": insight.Severity,
		"message":  insight.Message,
		"cause":    insight.Cause,
		"question": insight.Question,
	})
}

// RenderPostMortem 渲染复盘通知消息
func RenderPostMortem(pm models.GoalPostMortem) string {
	violated := "无"
	if len(pm.ViolatedRuleKeys) > 0 {
		violated = strings.Join(pm.ViolatedRuleKeys, ", ")
	}
	tmpl := fasttemplate.New(postMortemTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"summary":  pm.Summary,
		"violated": violated,
		"pattern":  pm.HistoricalPattern,
	})
}

// RenderTradingStatus 渲染交易许可状态消息
func RenderTradingStatus(status engine.TradingStatusResult) string {
	tmpl := fasttemplate.New(statusTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"status": status.Status,
		"reason": status.Reason,
		"action": status.Action,
	})
}
