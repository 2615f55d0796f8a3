package nostd

import (
	"errors"
	"net/http"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/labstack/echo/v4"
)

// CustomValidator echo请求参数校验器，校验错误翻译成中文提示
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

func (cv *CustomValidator) TransInit() error {
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, found := uni.GetTranslator("zh")
	if !found {
		trans = uni.GetFallback()
	}
	cv.trans = trans
	return zhTranslations.RegisterDefaultTranslations(cv.Validator, trans)
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.Validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && cv.trans != nil {
			for _, e := range errs {
				return echo.NewHTTPError(http.StatusBadRequest, e.Translate(cv.trans))
			}
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
