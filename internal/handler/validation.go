package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/careerhub/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator はJSONタグ名でフィールドを報告するvalidatorを返す。
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateRequest はリクエスト構造体を検証し、最初の違反をAPIErrorとして返す。
func validateRequest(req any) *model.APIError {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewInvalidRequestError()
	}

	fe := verrs[0]
	return model.NewValidationError(fe.Field(), describeViolation(fe))
}

// describeViolation は検証タグを利用者向けの短い説明に変換する。
func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必須項目です"
	case "email":
		return "メールアドレスの形式ではありません"
	case "min":
		return fe.Param() + "文字以上で入力してください"
	case "max":
		return fe.Param() + "文字以内で入力してください"
	default:
		return "不正な値です"
	}
}
