package handler

import (
	"net/http"
	"time"

	"github.com/dushixiang/ballast/internal/models"
	"github.com/dushixiang/ballast/internal/service"
	"github.com/dushixiang/ballast/pkg/nostd"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GoalHandler 交易目标HTTP处理器
type GoalHandler struct {
	goalService *service.GoalService
	logger      *zap.Logger
}

// NewGoalHandler 创建目标处理器
func NewGoalHandler(goalService *service.GoalService, logger *zap.Logger) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
		logger:      logger,
	}
}

// GoalRequest 创建/更新目标请求
type GoalRequest struct {
	Period            string    `json:"period" validate:"required,oneof=daily weekly monthly yearly"`
	Metric            string    `json:"metric" validate:"required,oneof=pnl winRate numTrades"`
	Target            float64   `json:"target" validate:"required"`
	StartAt           time.Time `json:"start_at" validate:"required"`
	EndAt             time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	IsPrimary         bool      `json:"is_primary"`
	IsBinding         bool      `json:"is_binding"`
	CooldownHours     int       `json:"cooldown_hours" validate:"omitempty,gte=0,lte=720"`
	ReduceRiskPercent float64   `json:"reduce_risk_percent" validate:"omitempty,gte=0,lte=100"`
}

func (r *GoalRequest) toModel() *models.TradingGoal {
	return &models.TradingGoal{
		Period:            r.Period,
		Metric:            r.Metric,
		Target:            r.Target,
		StartAt:           r.StartAt,
		EndAt:             r.EndAt,
		IsPrimary:         r.IsPrimary,
		IsBinding:         r.IsBinding,
		CooldownHours:     r.CooldownHours,
		ReduceRiskPercent: r.ReduceRiskPercent,
	}
}

// CreateGoal 创建目标
// POST /api/goals
func (h *GoalHandler) CreateGoal(c echo.Context) error {
	ctx := c.Request().Context()

	var req GoalRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	goal := req.toModel()
	if err := h.goalService.CreateGoal(ctx, goal); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

// ListGoals 获取全部目标
// GET /api/goals
func (h *GoalHandler) ListGoals(c echo.Context) error {
	ctx := c.Request().Context()

	goals, err := h.goalService.ListGoals(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(goals),
		"goals": goals,
	})
}

// GetGoal 获取单个目标
// GET /api/goals/:id
func (h *GoalHandler) GetGoal(c echo.Context) error {
	ctx := c.Request().Context()

	goal, err := h.goalService.GetGoal(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

// UpdateGoal 更新目标参数
// PUT /api/goals/:id
func (h *GoalHandler) UpdateGoal(c echo.Context) error {
	ctx := c.Request().Context()

	var req GoalRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	goal := req.toModel()
	goal.ID = c.Param("id")
	if err := h.goalService.UpdateGoal(ctx, goal); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

// DeleteGoal 删除目标
// DELETE /api/goals/:id
func (h *GoalHandler) DeleteGoal(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.goalService.DeleteGoal(ctx, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "已删除",
	})
}

// CheckGoals 立即执行一轮目标状态机评估
// POST /api/goals/check
func (h *GoalHandler) CheckGoals(c echo.Context) error {
	ctx := c.Request().Context()

	outcomes, err := h.goalService.CheckGoals(ctx, time.Now())
	if err != nil {
		return err
	}

	transitions := 0
	for i := range outcomes {
		if outcomes[i].Transitioned {
			transitions++
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"evaluated":   len(outcomes),
		"transitions": transitions,
		"outcomes":    outcomes,
	})
}

// GetGoalInsights 获取指定目标的洞察
// GET /api/goals/:id/insights
func (h *GoalHandler) GetGoalInsights(c echo.Context) error {
	ctx := c.Request().Context()

	insights, err := h.goalService.ListInsightsByGoal(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(insights),
		"insights": insights,
	})
}

// GetGoalPostMortems 获取指定目标的复盘
// GET /api/goals/:id/post-mortems
func (h *GoalHandler) GetGoalPostMortems(c echo.Context) error {
	ctx := c.Request().Context()

	postMortems, err := h.goalService.ListPostMortemsByGoal(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":        len(postMortems),
		"post_mortems": postMortems,
	})
}

// ListInsights 获取最近的洞察
// GET /api/insights?limit=20
func (h *GoalHandler) ListInsights(c echo.Context) error {
	ctx := c.Request().Context()

	limit := nostd.QueryInt(c, "limit", 20)
	insights, err := h.goalService.ListInsights(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(insights),
		"insights": insights,
	})
}

// ListPostMortems 获取最近的复盘
// GET /api/post-mortems?limit=20
func (h *GoalHandler) ListPostMortems(c echo.Context) error {
	ctx := c.Request().Context()

	limit := nostd.QueryInt(c, "limit", 20)
	postMortems, err := h.goalService.ListPostMortems(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":        len(postMortems),
		"post_mortems": postMortems,
	})
}

// RegisterRoutes 注册路由
func (h *GoalHandler) RegisterRoutes(g *echo.Group) {
	goals := g.Group("/goals")

	goals.POST("", h.CreateGoal)
	goals.GET("", h.ListGoals)
	goals.POST("/check", h.CheckGoals)
	goals.GET("/:id", h.GetGoal)
	goals.PUT("/:id", h.UpdateGoal)
	goals.DELETE("/:id", h.DeleteGoal)
	goals.GET("/:id/insights", h.GetGoalInsights)
	goals.GET("/:id/post-mortems", h.GetGoalPostMortems)

	g.GET("/insights", h.ListInsights)
	g.GET("/post-mortems", h.ListPostMortems)
}
