package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/careerhub/internal/auth"
	"github.com/hitoshi/careerhub/internal/middleware"
	"github.com/hitoshi/careerhub/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse はAPIErrorを統一フォーマットのJSONレスポンスとして書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// 内部エラーの詳細はログのみに記録し、クライアントには汎用メッセージを返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		apiErr      *model.APIError
		validErr    *model.ValidationError
		conflictErr *auth.ConflictError
		authErr     *auth.Error
	)

	switch {
	case errors.As(err, &apiErr):
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
	case errors.As(err, &validErr):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(validErr.Field, validErr.Reason))
	case errors.As(err, &conflictErr):
		writeAPIErrorResponse(w, http.StatusConflict, model.NewEmailConflictError())
	case errors.As(err, &authErr):
		if authErr.Kind == auth.KindForbidden {
			writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
			return
		}
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	default:
		slog.Error("internal server error", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailConflict:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeServiceUnhealthy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
