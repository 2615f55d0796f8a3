package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dushixiang/ballast/internal/config"
	"github.com/dushixiang/ballast/internal/handler"
	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/notify"
	"github.com/dushixiang/ballast/internal/service"
	"github.com/dushixiang/ballast/pkg/nostd"
	"github.com/dushixiang/ballast/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewBallastApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewBallastApp() orz.Application {
	return &BallastApp{}
}

var _ orz.Application = (*BallastApp)(nil)

type AppComponents struct {
	JournalHandler  *handler.JournalHandler
	RiskHandler     *handler.RiskHandler
	GoalHandler     *handler.GoalHandler
	SettingsHandler *handler.SettingsHandler

	// Journal system services
	ReviewLoop      *service.ReviewLoop
	JournalService  *service.JournalService
	RiskService     *service.RiskService
	GoalService     *service.GoalService
	SettingsService *service.SettingsService

	tg *notify.Telegram
}

type BallastApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *BallastApp) GetComponents() *AppComponents {
	return r.components
}

func (r *BallastApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		// Journal system models
		models.Trade{}, models.Settings{}, models.TradingGoal{},
		models.GoalInsight{}, models.GoalPostMortem{}, models.RiskSnapshot{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		// Journal API routes
		r.components.JournalHandler.RegisterRoutes(api)
		r.components.RiskHandler.RegisterRoutes(api)
		r.components.GoalHandler.RegisterRoutes(api)
		r.components.SettingsHandler.RegisterRoutes(api)
	}

	return nil
}

func (r *BallastApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Ballast Trading Journal Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.tg != nil {
		components.tg.Start()
		logger.Info("telegram notifier started")
	}

	if r.conf.Review.Enabled {
		logger.Info("review loop initialized, starting...")
		go func() {
			if err := components.ReviewLoop.Start(context.Background()); err != nil {
				logger.Error("review loop error", zap.Error(err))
			}
		}()
	} else {
		logger.Info("review loop disabled, use the API to run review cycles manually")
	}
	return nil
}
