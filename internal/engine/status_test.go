package engine

import (
	"testing"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGlobalRiskOKWhenClean(t *testing.T) {
	r := GlobalRisk(nil, testSettings(), baseTime)

	assert.Equal(t, GlobalRiskOK, r.Status)
	assert.Empty(t, r.Reasons)
}

func TestGlobalRiskBlockedByDisciplineLock(t *testing.T) {
	settings := testSettings()
	until := baseTime.Add(6 * time.Hour)
	settings.Discipline.Enabled = true
	settings.Discipline.BlockedUntil = &until

	r := GlobalRisk(nil, settings, baseTime)

	assert.Equal(t, GlobalRiskBlocked, r.Status)
	assert.NotEmpty(t, r.Reasons)
}

func TestGlobalRiskExpiredLockIgnored(t *testing.T) {
	settings := testSettings()
	until := baseTime.Add(-time.Hour)
	settings.Discipline.Enabled = true
	settings.Discipline.BlockedUntil = &until

	r := GlobalRisk(nil, settings, baseTime)

	assert.Equal(t, GlobalRiskOK, r.Status)
}

func TestGlobalRiskDrawdownModes(t *testing.T) {
	// 回撤 12%，上限 10%
	yesterday := baseTime.Add(-24 * time.Hour)
	trades := []models.Trade{closedTrade("t1", -1200, yesterday)}

	hardStop := testSettings()
	hardStop.RiskManagement.DrawdownMode = models.DrawdownModeHardStop
	r := GlobalRisk(trades, hardStop, baseTime)
	assert.Equal(t, GlobalRiskBlocked, r.Status)

	soft := testSettings()
	r = GlobalRisk(trades, soft, baseTime)
	assert.Equal(t, GlobalRiskWarning, r.Status)
}

func TestGlobalRiskWarnsNearDrawdownLimit(t *testing.T) {
	// 回撤 8.5%，达到上限 10% 的 80%
	yesterday := baseTime.Add(-24 * time.Hour)
	trades := []models.Trade{closedTrade("t1", -850, yesterday)}

	r := GlobalRisk(trades, testSettings(), baseTime)

	assert.Equal(t, GlobalRiskWarning, r.Status)
}

func TestGlobalRiskDailyLossBreachBlocks(t *testing.T) {
	// 当日亏损 600 = 6%，超过单日限额 5%；回撤 6% 未触发其他状态
	trades := []models.Trade{closedTrade("t1", -600, baseTime)}

	r := GlobalRisk(trades, testSettings(), baseTime)

	assert.Equal(t, GlobalRiskBlocked, r.Status)
}

func TestGlobalRiskWarningNeverOverridesBlocked(t *testing.T) {
	settings := testSettings()
	until := baseTime.Add(6 * time.Hour)
	settings.Discipline.Enabled = true
	settings.Discipline.BlockedUntil = &until

	// 叠加一个仅触发 warning 的回撤
	yesterday := baseTime.Add(-24 * time.Hour)
	trades := []models.Trade{closedTrade("t1", -850, yesterday)}

	r := GlobalRisk(trades, settings, baseTime)

	assert.Equal(t, GlobalRiskBlocked, r.Status)
	assert.Len(t, r.Reasons, 2)
}

func TestTradingStatusOperableWhenClean(t *testing.T) {
	r := TradingStatus(nil, testSettings(), baseTime)

	assert.Equal(t, TradingStatusOperable, r.Status)
	assert.NotEmpty(t, r.Reason)
	assert.NotEmpty(t, r.Action)
}

func TestTradingStatusDailyLossTakesPriority(t *testing.T) {
	// 当日亏损 6% 超过上限 5%，同时回撤也超过 15%，只呈现亏损原因
	trades := []models.Trade{
		closedTrade("t1", -1000, baseTime.Add(-24*time.Hour)),
		closedTrade("t2", -600, baseTime),
	}

	r := TradingStatus(trades, testSettings(), baseTime)

	assert.Equal(t, TradingStatusPauseRecommended, r.Status)
	assert.Contains(t, r.Reason, "当日亏损")
}

func TestTradingStatusDrawdownThresholds(t *testing.T) {
	tests := []struct {
		name string
		pnl  float64
		want string
	}{
		{"回撤16%建议暂停", -1600, TradingStatusPauseRecommended},
		{"回撤12%风险升高", -1200, TradingStatusRiskElevated},
		{"回撤8%可交易", -800, TradingStatusOperable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yesterday := baseTime.Add(-24 * time.Hour)
			trades := []models.Trade{closedTrade("t1", tt.pnl, yesterday)}

			r := TradingStatus(trades, testSettings(), baseTime)

			assert.Equal(t, tt.want, r.Status)
			assert.InDelta(t, -tt.pnl/10000*100, r.Details.DrawdownPercent, 1e-9)
		})
	}
}

func TestTradingStatusOpenViolationsElevate(t *testing.T) {
	settings := testSettings()
	settings.TradingRules.MaxLotSize = 1

	trades := []models.Trade{
		openTrade("t1", "GOLD", 100, nil, 3, baseTime.Add(-time.Hour)),
	}

	r := TradingStatus(trades, settings, baseTime)

	assert.Equal(t, TradingStatusRiskElevated, r.Status)
	assert.Equal(t, 1, r.Details.ViolationCount)
	assert.Contains(t, r.Reason, "违规")
}

func TestTradingStatusAverageRiskFactors(t *testing.T) {
	// 三笔已平仓交易，平均风险由数量控制（止损1点，资金10000）
	makeTrades := func(qty float64) []models.Trade {
		trades := make([]models.Trade, 0, 3)
		for i := 0; i < 3; i++ {
			trade := closedTrade(string(rune('a'+i)), 10, baseTime.Add(-48*time.Hour))
			trade.StopLoss = fp(99)
			trade.Quantity = qty
			trades = append(trades, trade)
		}
		return trades
	}

	// 平均风险 2.5%：超过上限 2% 但未达 1.5 倍
	r := TradingStatus(makeTrades(250), testSettings(), baseTime)
	assert.Equal(t, TradingStatusRiskElevated, r.Status)

	// 平均风险 4%：超过上限的 1.5 倍
	r = TradingStatus(makeTrades(400), testSettings(), baseTime)
	assert.Equal(t, TradingStatusPauseRecommended, r.Status)
}

func TestDetectOvertrading(t *testing.T) {
	// 30天历史共15笔（日均0.5），近7天12笔（日均约1.7）
	trades := make([]models.Trade, 0, 15)
	for i := 0; i < 3; i++ {
		trades = append(trades, models.Trade{EntryAt: baseTime.Add(-time.Duration(20+i*3) * 24 * time.Hour)})
	}
	for i := 0; i < 12; i++ {
		trades = append(trades, models.Trade{EntryAt: baseTime.Add(-time.Duration(i%6) * 24 * time.Hour)})
	}

	assert.True(t, detectOvertrading(trades, baseTime))
}

func TestDetectOvertradingNeedsHistory(t *testing.T) {
	// 历史跨度不足14天时不判定
	trades := make([]models.Trade, 0, 20)
	for i := 0; i < 20; i++ {
		trades = append(trades, models.Trade{EntryAt: baseTime.Add(-time.Duration(i%5) * 24 * time.Hour)})
	}

	assert.False(t, detectOvertrading(trades, baseTime))
}
