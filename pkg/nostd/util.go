package nostd

import (
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
)

// QueryInt 读取整型查询参数，缺失或非法时返回默认值
func QueryInt(c echo.Context, name string, defaultValue int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue
	}
	value := cast.ToInt(raw)
	if value <= 0 {
		return defaultValue
	}
	return value
}
