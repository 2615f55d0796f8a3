package service

import (
	"context"
	"time"

	"github.com/dushixiang/ballast/internal/engine"
	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/repo"
	"github.com/dushixiang/ballast/internal/xe"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GoalService 交易目标服务：负责目标进度重算与目标状态机的调度。
// 引擎只观察前后两次进度值，进度本身由这里根据交易日志重算。
type GoalService struct {
	logger *zap.Logger

	*orz.Service
	*repo.GoalRepo

	insightRepo     *repo.InsightRepo
	postMortemRepo  *repo.PostMortemRepo
	tradeRepo       *repo.TradeRepo
	settingsService *SettingsService
}

// NewGoalService 创建目标服务
func NewGoalService(db *gorm.DB, settingsService *SettingsService, logger *zap.Logger) *GoalService {
	return &GoalService{
		logger:          logger,
		Service:         orz.NewService(db),
		GoalRepo:        repo.NewGoalRepo(db),
		insightRepo:     repo.NewInsightRepo(db),
		postMortemRepo:  repo.NewPostMortemRepo(db),
		tradeRepo:       repo.NewTradeRepo(db),
		settingsService: settingsService,
	}
}

// CreateGoal 创建目标，初始进度为0
func (s *GoalService) CreateGoal(ctx context.Context, goal *models.TradingGoal) error {
	goal.ID = ulid.Make().String()
	goal.Current = 0
	goal.FailureCount = 0
	return s.GoalRepo.Create(ctx, goal)
}

// GetGoal 获取单个目标
func (s *GoalService) GetGoal(ctx context.Context, id string) (*models.TradingGoal, error) {
	goal, err := s.GoalRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// ListGoals 获取全部目标
func (s *GoalService) ListGoals(ctx context.Context) ([]models.TradingGoal, error) {
	return s.GoalRepo.FindAllOrderByCreatedAt(ctx)
}

// UpdateGoal 更新目标参数（不触碰失败记录）
func (s *GoalService) UpdateGoal(ctx context.Context, goal *models.TradingGoal) error {
	existing, err := s.GoalRepo.FindById(ctx, goal.ID)
	if err != nil {
		return err
	}
	if existing.Completed {
		return xe.ErrGoalCompleted
	}
	goal.Current = existing.Current
	goal.FailureCount = existing.FailureCount
	goal.FailedAt = existing.FailedAt
	goal.LastFailedAt = existing.LastFailedAt
	goal.GeneratedInsightIDs = existing.GeneratedInsightIDs
	goal.CreatedAt = existing.CreatedAt
	return s.GoalRepo.Save(ctx, goal)
}

// DeleteGoal 删除目标
func (s *GoalService) DeleteGoal(ctx context.Context, id string) error {
	return s.GoalRepo.DeleteById(ctx, id)
}

// progressFor 根据交易日志重算目标进度
func progressFor(goal models.TradingGoal, trades []models.Trade) float64 {
	switch goal.Metric {
	case models.GoalMetricPnl:
		sum := 0.0
		for i := range trades {
			t := trades[i]
			if t.IsClosed() && t.Pnl != nil && t.ExitAt != nil &&
				!t.ExitAt.Before(goal.StartAt) && t.ExitAt.Before(goal.EndAt) {
				sum += *t.Pnl
			}
		}
		return sum

	case models.GoalMetricWinRate:
		closed, wins := 0, 0
		for i := range trades {
			t := trades[i]
			if t.IsClosed() && t.Pnl != nil && t.ExitAt != nil &&
				!t.ExitAt.Before(goal.StartAt) && t.ExitAt.Before(goal.EndAt) {
				closed++
				if *t.Pnl > 0 {
					wins++
				}
			}
		}
		if closed == 0 {
			return 0
		}
		return float64(wins) / float64(closed) * 100

	case models.GoalMetricNumTrades:
		count := 0
		for i := range trades {
			t := trades[i]
			if !t.EntryAt.Before(goal.StartAt) && t.EntryAt.Before(goal.EndAt) {
				count++
			}
		}
		return float64(count)
	}
	return 0
}

// CheckGoals 执行一轮目标状态机评估：
// 重算各目标进度（保留上一轮取值作为对照），交给引擎判定失败跃迁，
// 落库洞察与复盘（按天去重），并把约束性后果交给配置服务应用。
func (s *GoalService) CheckGoals(ctx context.Context, now time.Time) ([]engine.GoalOutcome, error) {
	var outcomes []engine.GoalOutcome

	err := s.Transaction(ctx, func(ctx context.Context) error {
		goals, err := s.GoalRepo.FindActive(ctx, now)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			return nil
		}

		trades, err := s.tradeRepo.FindAllOrderByEntryAt(ctx)
		if err != nil {
			return err
		}
		settings, err := s.settingsService.Get(ctx)
		if err != nil {
			return err
		}

		// 上一轮进度值来自数据库中保存的 current，重算后写入新值
		previous := make(map[string]float64, len(goals))
		for i := range goals {
			previous[goals[i].ID] = goals[i].Current
			goals[i].Current = progressFor(goals[i], trades)
		}

		dayKey := engine.DayKey(now)
		emittedInsights := make(map[string]bool, len(goals))
		emittedPostMortems := make(map[string]bool, len(goals))
		for i := range goals {
			key := goals[i].ID + "|" + dayKey
			if exists, err := s.insightRepo.ExistsForDay(ctx, goals[i].ID, dayKey); err != nil {
				return err
			} else if exists {
				emittedInsights[key] = true
			}
			if exists, err := s.postMortemRepo.ExistsForDay(ctx, goals[i].ID, dayKey); err != nil {
				return err
			} else if exists {
				emittedPostMortems[key] = true
			}
		}

		outcomes = engine.EvaluateGoals(engine.GoalInput{
			Goals:              goals,
			Previous:           previous,
			Trades:             trades,
			Settings:           *settings,
			EmittedInsights:    emittedInsights,
			EmittedPostMortems: emittedPostMortems,
			Now:                now,
		})

		for i := range outcomes {
			outcome := &outcomes[i]
			goal := outcome.Goal

			if outcome.Insight != nil {
				insight := &models.GoalInsight{
					ID:       ulid.Make().String(),
					GoalID:   outcome.Insight.GoalID,
					DayKey:   outcome.Insight.DayKey,
					Severity: outcome.Insight.Severity,
					Cause:    outcome.Insight.Cause,
					Message:  outcome.Insight.Message,
					Question: outcome.Insight.Question,
				}
				if err := s.insightRepo.Create(ctx, insight); err != nil {
					return err
				}
				goal.GeneratedInsightIDs = append(goal.GeneratedInsightIDs, insight.ID)
			}

			if outcome.PostMortem != nil {
				pm := &models.GoalPostMortem{
					ID:                ulid.Make().String(),
					GoalID:            outcome.PostMortem.GoalID,
					DayKey:            outcome.PostMortem.DayKey,
					Summary:           outcome.PostMortem.Summary,
					ViolatedRuleKeys:  outcome.PostMortem.ViolatedRuleKeys,
					HistoricalPattern: outcome.PostMortem.HistoricalPattern,
				}
				if err := s.postMortemRepo.Create(ctx, pm); err != nil {
					return err
				}
			}

			if err := s.GoalRepo.Save(ctx, &goal); err != nil {
				return err
			}

			if outcome.Patch != nil {
				if _, err := s.settingsService.ApplyPatch(ctx, *outcome.Patch, now); err != nil {
					return err
				}
				s.logger.Warn("binding goal failed, consequences applied",
					zap.String("goal_id", goal.ID),
					zap.String("metric", goal.Metric),
					zap.Int("failure_count", goal.FailureCount))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// ListInsights 获取最近的洞察
func (s *GoalService) ListInsights(ctx context.Context, limit int) ([]models.GoalInsight, error) {
	return s.insightRepo.FindRecent(ctx, limit)
}

// ListInsightsByGoal 获取指定目标的洞察
func (s *GoalService) ListInsightsByGoal(ctx context.Context, goalID string) ([]models.GoalInsight, error) {
	return s.insightRepo.FindByGoalID(ctx, goalID)
}

// ListPostMortems 获取最近的复盘
func (s *GoalService) ListPostMortems(ctx context.Context, limit int) ([]models.GoalPostMortem, error) {
	return s.postMortemRepo.FindRecent(ctx, limit)
}

// ListPostMortemsByGoal 获取指定目标的复盘
func (s *GoalService) ListPostMortemsByGoal(ctx context.Context, goalID string) ([]models.GoalPostMortem, error) {
	return s.postMortemRepo.FindByGoalID(ctx, goalID)
}
