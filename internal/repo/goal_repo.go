package repo

import (
	"context"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewGoalRepo(db *gorm.DB) *GoalRepo {
	return &GoalRepo{
		Repository: orz.NewRepository[models.TradingGoal, string](db),
	}
}

type GoalRepo struct {
	orz.Repository[models.TradingGoal, string]
}

// FindActive 获取指定时间处于有效期内且未完成的目标
func (r GoalRepo) FindActive(ctx context.Context, now time.Time) ([]models.TradingGoal, error) {
	var goals []models.TradingGoal
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("completed = ? AND start_at <= ? AND end_at > ?", false, now, now).
		Order("created_at ASC").
		Find(&goals).Error
	return goals, err
}

// FindAllOrderByCreatedAt 获取全部目标
func (r GoalRepo) FindAllOrderByCreatedAt(ctx context.Context) ([]models.TradingGoal, error) {
	var goals []models.TradingGoal
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("created_at DESC").
		Find(&goals).Error
	return goals, err
}
