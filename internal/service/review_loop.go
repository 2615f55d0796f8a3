package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/ballast/internal/config"
	"github.com/dushixiang/ballast/internal/engine"
	"github.com/dushixiang/ballast/internal/notify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReviewLoop 复盘循环调度器：周期性地重算目标进度、执行目标状态机、
// 写入风险快照，并把新产生的洞察与复盘推送出去。
type ReviewLoop struct {
	conf        config.ReviewConf
	goalService *GoalService
	riskService *RiskService
	notifier    *notify.Telegram
	logger      *zap.Logger

	mu        sync.Mutex
	startTime time.Time
	cycles    int
	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	cancel    context.CancelFunc
}

// NewReviewLoop 创建复盘循环
func NewReviewLoop(
	conf *config.Config,
	goalService *GoalService,
	riskService *RiskService,
	notifier *notify.Telegram,
	logger *zap.Logger,
) *ReviewLoop {
	return &ReviewLoop{
		conf:        conf.Review,
		goalService: goalService,
		riskService: riskService,
		notifier:    notifier,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start 启动复盘循环，阻塞到收到停止信号或context取消
func (t *ReviewLoop) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("review loop is already running")
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.stopChan = make(chan struct{})
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	interval := t.conf.IntervalMinutes
	if interval <= 0 {
		interval = 15
	}

	// 生成 cron 表达式：每 N 分钟的整点执行
	cronExpr := fmt.Sprintf("*/%d * * * *", interval)

	t.logger.Info("review loop started",
		zap.Int("interval_minutes", interval),
		zap.String("cron_expression", cronExpr))

	t.cron = cron.New()
	_, err := t.cron.AddFunc(cronExpr, func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("review cycle failed", zap.Error(err))
		}
	})
	if err != nil {
		t.mu.Lock()
		t.isRunning = false
		t.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	t.cron.Start()

	// 立即执行第一次
	go func() {
		if err := t.ExecuteCycle(context.Background()); err != nil {
			t.logger.Error("first review cycle failed", zap.Error(err))
		}
	}()

	select {
	case <-t.stopChan:
	case <-ctx.Done():
	}

	t.cron.Stop()
	t.mu.Lock()
	t.isRunning = false
	t.mu.Unlock()
	t.logger.Info("review loop stopped")
	return nil
}

// Stop 停止复盘循环
func (t *ReviewLoop) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isRunning {
		return
	}
	close(t.stopChan)
	if t.cancel != nil {
		t.cancel()
	}
}

// IsRunning 是否运行中
func (t *ReviewLoop) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// ExecuteCycle 执行一轮复盘：目标检查 → 风险快照 → 通知
func (t *ReviewLoop) ExecuteCycle(ctx context.Context) error {
	now := time.Now()

	t.mu.Lock()
	t.cycles++
	cycle := t.cycles
	t.mu.Unlock()

	t.logger.Info("review cycle started", zap.Int("cycle", cycle))

	outcomes, err := t.goalService.CheckGoals(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to check goals: %w", err)
	}

	transitions := 0
	for _, outcome := range outcomes {
		if !outcome.Transitioned {
			continue
		}
		transitions++
		t.notifyOutcome(ctx, outcome.Goal.ID)
	}

	snapshot, err := t.riskService.Snapshot(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to snapshot risk: %w", err)
	}

	// 交易许可状态异常时推送提醒
	if t.notifier != nil && snapshot.TradingStatus != engine.TradingStatusOperable {
		if status, err := t.riskService.GetTradingStatus(ctx, now); err == nil {
			if err := t.notifier.Notify(notify.RenderTradingStatus(*status)); err != nil {
				t.logger.Warn("failed to send trading status notification", zap.Error(err))
			}
		}
	}

	t.logger.Info("review cycle finished",
		zap.Int("cycle", cycle),
		zap.Int("goal_transitions", transitions),
		zap.String("trading_status", snapshot.TradingStatus),
		zap.String("global_risk", snapshot.GlobalRiskStatus))
	return nil
}

// notifyOutcome 推送目标失败产生的最新洞察与复盘
func (t *ReviewLoop) notifyOutcome(ctx context.Context, goalID string) {
	if t.notifier == nil {
		return
	}

	if insights, err := t.goalService.ListInsightsByGoal(ctx, goalID); err == nil && len(insights) > 0 {
		if err := t.notifier.Notify(notify.RenderInsight(insights[0])); err != nil {
			t.logger.Warn("failed to send insight notification", zap.Error(err))
		}
	}
	if pms, err := t.goalService.ListPostMortemsByGoal(ctx, goalID); err == nil && len(pms) > 0 {
		if err := t.notifier.Notify(notify.RenderPostMortem(pms[0])); err != nil {
			t.logger.Warn("failed to send post-mortem notification", zap.Error(err))
		}
	}
}

// GetStatus 获取循环状态
func (t *ReviewLoop) GetStatus(ctx context.Context) (map[string]interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := map[string]interface{}{
		"is_running": t.isRunning,
		"cycles":     t.cycles,
	}
	if t.isRunning {
		status["start_time"] = t.startTime
		status["uptime"] = time.Since(t.startTime).Round(time.Second).String()
	}
	return status, nil
}
