package engine

import (
	"github.com/dushixiang/ballast/internal/models"
)

// errorRiskRewardFloor 风报比低于该值直接判定为错误交易
const errorRiskRewardFloor = 0.5

// modelRiskRewardFloor 模范交易要求的最低风报比
const modelRiskRewardFloor = 2.0

// Classify 根据交易结果与违规情况给出交易分类。
// 存在严重违规或风报比低于0.5判为 error；
// 已平仓、盈利、风报比不低于2且零违规判为 model；其余为 neutral。
func Classify(trade models.Trade, violations []Violation) string {
	rr := trade.RiskReward
	if rr == nil {
		rr = trade.ComputeRiskReward()
	}

	for _, v := range violations {
		if v.Severity == SeverityCritical {
			return models.ClassificationError
		}
	}
	if rr != nil && *rr < errorRiskRewardFloor {
		return models.ClassificationError
	}

	if trade.IsClosed() && trade.Pnl != nil && *trade.Pnl > 0 &&
		rr != nil && *rr >= modelRiskRewardFloor && len(violations) == 0 {
		return models.ClassificationModel
	}

	return models.ClassificationNeutral
}
