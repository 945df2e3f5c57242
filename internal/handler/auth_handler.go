// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/careerhub/internal/auth"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/token"
)

// maxRequestBodyBytes は認証リクエストボディの上限。
const maxRequestBodyBytes = 1 << 16

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
}

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	NewClaims(subject string, role model.Role, email string) token.Claims
	Issue(claims token.Claims) (string, error)
}

// registerRequest はPOST /auth/registerのリクエストボディ。
type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=320"`
	Password  string `json:"password" validate:"required,min=8,max=256"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// loginRequest はPOST /auth/loginのリクエストボディ。
// 入力の形式不正もすべて認証失敗として扱うため、検証タグは付けない。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse は公開してよいユーザー情報のJSON表現。
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// AuthHandler はメールアドレス・パスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	tokens  TokenIssuer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		service: service,
		tokens:  tokens,
	}
}

// Register は新規ユーザーを登録し、セッショントークンを発行する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.writeSession(w, http.StatusCreated, user)
}

// Login はメールアドレスとパスワードを検証し、セッショントークンを発行する。
// 失敗理由にかかわらず同一の401レスポンスを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.writeSession(w, http.StatusOK, user)
}

// writeSession はユーザーのセッショントークンを発行してレスポンスを書き込む。
func (h *AuthHandler) writeSession(w http.ResponseWriter, statusCode int, user *model.User) {
	claims := h.tokens.NewClaims(user.ID, user.Role, user.Email)
	tok, err := h.tokens.Issue(claims)
	if err != nil {
		slog.Error("failed to issue session token",
			slog.String("subject_id", user.ID),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
		return
	}

	writeJSON(w, statusCode, authResponse{
		Token:     tok,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt,
		User:      toUserResponse(user),
	})
}

// decodeJSONBody はサイズ上限付きでリクエストボディをデコードする。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
