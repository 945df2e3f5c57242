package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/careerhub/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile は認証済み主体のユーザー情報を返す。
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	// Stats はロール別のユーザー数を集計する。
	Stats(ctx context.Context) (*model.UserStats, error)
}

// UserHandler はユーザー情報のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Me は認証済み主体のユーザー情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request, p model.Principal) {
	user, err := h.service.GetProfile(r.Context(), p.SubjectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// statsResponse はGET /api/admin/statsのレスポンス。
type statsResponse struct {
	TotalUsers  int            `json:"total_users"`
	UsersByRole map[string]int `json:"users_by_role"`
}

// Stats はロール別のユーザー数を返す。管理者のみ。
// GET /api/admin/stats
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request, _ model.Principal) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	byRole := make(map[string]int, len(stats.UsersByRole))
	for role, n := range stats.UsersByRole {
		byRole[string(role)] = n
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalUsers:  stats.TotalUsers,
		UsersByRole: byRole,
	})
}
