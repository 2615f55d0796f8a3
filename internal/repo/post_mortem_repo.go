package repo

import (
	"context"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewPostMortemRepo(db *gorm.DB) *PostMortemRepo {
	return &PostMortemRepo{
		Repository: orz.NewRepository[models.GoalPostMortem, string](db),
	}
}

type PostMortemRepo struct {
	orz.Repository[models.GoalPostMortem, string]
}

// ExistsForDay 判断指定目标当天是否已生成过复盘
func (r PostMortemRepo) ExistsForDay(ctx context.Context, goalID, dayKey string) (bool, error) {
	var count int64
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("goal_id = ? AND day_key = ?", goalID, dayKey).
		Count(&count).Error
	return count > 0, err
}

// FindByGoalID 获取指定目标的全部复盘
func (r PostMortemRepo) FindByGoalID(ctx context.Context, goalID string) ([]models.GoalPostMortem, error) {
	var items []models.GoalPostMortem
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("goal_id = ?", goalID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindRecent 获取最近生成的复盘
func (r PostMortemRepo) FindRecent(ctx context.Context, limit int) ([]models.GoalPostMortem, error) {
	var items []models.GoalPostMortem
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
