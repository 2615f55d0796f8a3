package repo

import (
	"context"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{
		Repository: orz.NewRepository[models.Settings, string](db),
	}
}

type SettingsRepo struct {
	orz.Repository[models.Settings, string]
}

// FindFirst 获取配置记录（单行）
func (r SettingsRepo) FindFirst(ctx context.Context) (m models.Settings, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Order("created_at ASC").
		First(&m).Error
	return m, err
}
