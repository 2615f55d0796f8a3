package repo

import (
	"context"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewRiskSnapshotRepo(db *gorm.DB) *RiskSnapshotRepo {
	return &RiskSnapshotRepo{
		Repository: orz.NewRepository[models.RiskSnapshot, string](db),
	}
}

type RiskSnapshotRepo struct {
	orz.Repository[models.RiskSnapshot, string]
}

// FindAllOrderByRecordedAt 获取全部风险快照（按时间升序）
func (r RiskSnapshotRepo) FindAllOrderByRecordedAt(ctx context.Context) ([]models.RiskSnapshot, error) {
	var snapshots []models.RiskSnapshot
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("recorded_at ASC").
		Find(&snapshots).Error
	return snapshots, err
}

// FindLatest 获取最近一条风险快照
func (r RiskSnapshotRepo) FindLatest(ctx context.Context) (m models.RiskSnapshot, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Order("recorded_at DESC").
		First(&m).Error
	return m, err
}
