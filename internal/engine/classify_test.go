package engine

import (
	"testing"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	winner := func(rr float64) models.Trade {
		// 构造风报比为 rr 的已平仓盈利交易：止损1点、止盈 rr 点
		return models.Trade{
			EntryPrice: 100,
			StopLoss:   fp(99),
			TakeProfit: fp(100 + rr),
			Status:     models.TradeStatusClosed,
			Pnl:        fp(50),
		}
	}

	critical := Violation{Rule: RuleMaxTradesPerDay, Severity: SeverityCritical}
	minor := Violation{Rule: RuleMinRiskReward, Severity: SeverityMinor}

	tests := []struct {
		name       string
		trade      models.Trade
		violations []Violation
		want       string
	}{
		{"严重违规直接判为错误交易", winner(3), []Violation{critical}, models.ClassificationError},
		{"风报比低于0.5判为错误交易", winner(0.4), nil, models.ClassificationError},
		{"盈利且风报比恰好2.0零违规为模范交易", winner(2), nil, models.ClassificationModel},
		{"有轻微违规不能成为模范交易", winner(3), []Violation{minor}, models.ClassificationNeutral},
		{"亏损交易不是模范交易", func() models.Trade {
			trade := winner(3)
			trade.Pnl = fp(-20)
			return trade
		}(), nil, models.ClassificationNeutral},
		{"持仓中交易为普通交易", func() models.Trade {
			trade := winner(3)
			trade.Status = models.TradeStatusOpen
			trade.Pnl = nil
			return trade
		}(), nil, models.ClassificationNeutral},
		{"无止损止盈的盈利交易为普通交易", models.Trade{
			EntryPrice: 100,
			Status:     models.TradeStatusClosed,
			Pnl:        fp(80),
		}, nil, models.ClassificationNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.trade, tt.violations))
		})
	}
}
