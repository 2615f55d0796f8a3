package engine

import (
	"testing"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

func closedTrade(id string, pnl float64, exitAt time.Time) models.Trade {
	return models.Trade{
		ID:         id,
		Symbol:     "GOLD",
		Side:       models.SideLong,
		EntryPrice: 100,
		Quantity:   1,
		Status:     models.TradeStatusClosed,
		Pnl:        fp(pnl),
		EntryAt:    exitAt.Add(-2 * time.Hour),
		ExitAt:     &exitAt,
	}
}

func openTrade(id, symbol string, entry float64, stopLoss *float64, qty float64, entryAt time.Time) models.Trade {
	return models.Trade{
		ID:         id,
		Symbol:     symbol,
		Side:       models.SideLong,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		Quantity:   qty,
		Status:     models.TradeStatusOpen,
		EntryAt:    entryAt,
	}
}

func TestDrawdownEmptyLedger(t *testing.T) {
	m := Drawdown(nil, 10000)

	assert.Zero(t, m.Current)
	assert.Zero(t, m.CurrentPercent)
	assert.Zero(t, m.Max)
	assert.Zero(t, m.MaxPercent)
	assert.Equal(t, 10000.0, m.Peak)
	assert.Equal(t, 10000.0, m.Equity)
}

func TestDrawdownAgainstPeak(t *testing.T) {
	trades := []models.Trade{
		closedTrade("t1", 500, baseTime.Add(1*time.Hour)),   // 权益 10500，新峰值
		closedTrade("t2", -1050, baseTime.Add(2*time.Hour)), // 权益 9450，回撤 10%
		closedTrade("t3", 2100, baseTime.Add(3*time.Hour)),  // 权益 11550，回撤归零
	}

	m := Drawdown(trades, 10000)

	assert.Zero(t, m.Current)
	assert.Zero(t, m.CurrentPercent)
	assert.Equal(t, 1050.0, m.Max)
	assert.InDelta(t, 10.0, m.MaxPercent, 1e-9)
	assert.Equal(t, 11550.0, m.Peak)
	assert.Equal(t, 11550.0, m.Equity)
}

func TestDrawdownIgnoresExitOrderInLedger(t *testing.T) {
	// 账本乱序时按平仓时间重排后计算
	trades := []models.Trade{
		closedTrade("t2", -1050, baseTime.Add(2*time.Hour)),
		closedTrade("t1", 500, baseTime.Add(1*time.Hour)),
	}

	m := Drawdown(trades, 10000)

	assert.Equal(t, 1050.0, m.Current)
	assert.InDelta(t, 10.0, m.CurrentPercent, 1e-9)
	assert.Equal(t, 10500.0, m.Peak)
}

func TestDrawdownPercentBounds(t *testing.T) {
	trades := []models.Trade{
		closedTrade("t1", -9999, baseTime),
	}

	m := Drawdown(trades, 10000)

	assert.GreaterOrEqual(t, m.CurrentPercent, 0.0)
	assert.LessOrEqual(t, m.CurrentPercent, 100.0)
}

func TestExposureNormalizesCurrencyPairs(t *testing.T) {
	trades := []models.Trade{
		// 六位货币对小仓位按标准手换算：0.005 × 50000 单位 = 250
		openTrade("t1", "EURUSD", 1.1000, fp(1.0950), 0.5, baseTime),
		// 非货币对直接使用原始数量：1000 × 0.5 = 500
		openTrade("t2", "BTCUSDT", 50000, fp(49000), 0.5, baseTime),
		// 未设置止损的持仓不计入
		openTrade("t3", "GOLD", 2000, nil, 1, baseTime),
	}

	m := Exposure(trades, 10000)

	assert.InDelta(t, 750.0, m.Total, 1e-6)
	assert.InDelta(t, 7.5, m.Percent, 1e-6)
	require.Len(t, m.ByAsset, 2)
	assert.Equal(t, "BTCUSDT", m.ByAsset[0].Symbol)
	assert.Equal(t, "EURUSD", m.ByAsset[1].Symbol)
}

func TestExposureSkipsClosedTrades(t *testing.T) {
	closed := closedTrade("t1", -100, baseTime)
	closed.StopLoss = fp(99)

	m := Exposure([]models.Trade{closed}, 10000)

	assert.Zero(t, m.Total)
	assert.Empty(t, m.ByAsset)
}

func TestTradeRiskPercent(t *testing.T) {
	trade := openTrade("t1", "GOLD", 100, fp(99), 250, baseTime)

	assert.InDelta(t, 2.5, TradeRiskPercent(trade, 10000), 1e-9)
	assert.Zero(t, TradeRiskPercent(trade, 0))

	trade.StopLoss = nil
	assert.Zero(t, TradeRiskPercent(trade, 10000))
}

func TestAverageRiskPerTrade(t *testing.T) {
	t1 := closedTrade("t1", 50, baseTime)
	t1.StopLoss = fp(99)
	t1.Quantity = 100 // 风险 1%
	t2 := closedTrade("t2", -30, baseTime.Add(time.Hour))
	t2.StopLoss = fp(99)
	t2.Quantity = 300 // 风险 3%
	noStop := closedTrade("t3", 10, baseTime.Add(2*time.Hour))
	open := openTrade("t4", "GOLD", 100, fp(99), 500, baseTime)

	avg := AverageRiskPerTrade([]models.Trade{t1, t2, noStop, open}, 10000)

	assert.InDelta(t, 2.0, avg, 1e-9)
}

func TestDailyLoss(t *testing.T) {
	today := baseTime
	yesterday := baseTime.Add(-24 * time.Hour)

	trades := []models.Trade{
		closedTrade("t1", -200, today),
		closedTrade("t2", 50, today.Add(time.Hour)),
		closedTrade("t3", -500, yesterday), // 非当日，不计入
	}

	m := DailyLoss(trades, 10000, today)

	assert.InDelta(t, 150.0, m.Amount, 1e-9)
	assert.InDelta(t, 1.5, m.Percent, 1e-9)
}

func TestDailyLossFlooredAtZeroOnProfit(t *testing.T) {
	trades := []models.Trade{
		closedTrade("t1", 300, baseTime),
		closedTrade("t2", -100, baseTime.Add(time.Hour)),
	}

	m := DailyLoss(trades, 10000, baseTime)

	assert.Zero(t, m.Amount)
	assert.Zero(t, m.Percent)
}

func TestNormalizedUnitsHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		quantity float64
		want     float64
	}{
		{"货币对小仓位换算标准手", "EURUSD", 0.5, 50000},
		{"货币对大仓位不换算", "EURUSD", 150, 150},
		{"非六位品种不换算", "BTCUSDT", 0.5, 0.5},
		{"含数字品种不换算", "US30", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := models.Trade{Symbol: tt.symbol, Quantity: tt.quantity}
			assert.Equal(t, tt.want, trade.NormalizedUnits())
		})
	}
}
