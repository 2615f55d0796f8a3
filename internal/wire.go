//go:build wireinject
// +build wireinject

package internal

import (
	"net/http"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/ballast/internal/config"
	"github.com/dushixiang/ballast/internal/handler"
	"github.com/dushixiang/ballast/internal/notify"
	"github.com/dushixiang/ballast/internal/service"
)

const telegramHTTPTimeout = 10 * time.Second

var (
	handlerSet = wire.NewSet(
		handler.NewJournalHandler,
		handler.NewRiskHandler,
		handler.NewGoalHandler,
		handler.NewSettingsHandler,
	)

	journalSet = wire.NewSet(
		service.NewSettingsService,
		service.NewJournalService,
		service.NewRiskService,
		service.NewGoalService,
		service.NewReviewLoop,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		journalSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}

// provideTelegram provides telegram instance
func provideTelegram(logger *zap.Logger, conf *config.Config) *notify.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := notify.NewTelegram(logger, notify.Settings{
		Token:  conf.Telegram.Token,
		ChatID: conf.Telegram.ChatID,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}
