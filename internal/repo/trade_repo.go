package repo

import (
	"context"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.Trade, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.Trade, string]
}

// FindAllOrderByEntryAt 获取全部交易（按开仓时间升序）
func (r TradeRepo) FindAllOrderByEntryAt(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("entry_at ASC").
		Find(&trades).Error
	return trades, err
}

// FindRecentTrades 获取最近的交易记录
func (r TradeRepo) FindRecentTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Order("entry_at DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// FindOpenTrades 获取所有持仓中的交易
func (r TradeRepo) FindOpenTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("status = ?", models.TradeStatusOpen).
		Order("entry_at DESC").
		Find(&trades).Error
	return trades, err
}
