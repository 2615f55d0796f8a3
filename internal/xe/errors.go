package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams      = orz.NewError(10400, "参数无效")
	ErrTradeAlreadyClosed = orz.NewError(10000, "该交易已平仓")
	ErrTradeNotClosed     = orz.NewError(10001, "该交易尚未平仓")
	ErrGoalCompleted      = orz.NewError(10002, "该目标已完成，无法修改")
	ErrTradingBlocked     = orz.NewError(10003, "纪律锁生效中，当前不允许交易")
)
