package repo

import (
	"context"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewInsightRepo(db *gorm.DB) *InsightRepo {
	return &InsightRepo{
		Repository: orz.NewRepository[models.GoalInsight, string](db),
	}
}

type InsightRepo struct {
	orz.Repository[models.GoalInsight, string]
}

// ExistsForDay 判断指定目标当天是否已生成过洞察
func (r InsightRepo) ExistsForDay(ctx context.Context, goalID, dayKey string) (bool, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("goal_id = ? AND day_key = ?", goalID, dayKey).
		Count(&count).Error
	return count > 0, err
}

// FindByGoalID 获取指定目标的全部洞察
func (r InsightRepo) FindByGoalID(ctx context.Context, goalID string) ([]models.GoalInsight, error) {
	var insights []models.GoalInsight
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("goal_id = ?", goalID).
		Order("created_at DESC").
		Find(&insights).Error
	return insights, err
}

// FindRecent 获取最近生成的洞察
func (r InsightRepo) FindRecent(ctx context.Context, limit int) ([]models.GoalInsight, error) {
	var insights []models.GoalInsight
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("created_at DESC").
		Limit(limit).
		Find(&insights).Error
	return insights, err
}
