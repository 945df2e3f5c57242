// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/careerhub/internal/auth"
	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/token"
)

// bearerPrefix はAuthorizationヘッダーに要求するスキーム接頭辞。大文字小文字を区別する。
const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済み主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// TokenParser はセッショントークンの検証インターフェース。
type TokenParser interface {
	Parse(tokenString string) (token.Claims, error)
}

// AuthRecorder は認証拒否のメトリクス記録インターフェース。
type AuthRecorder interface {
	RecordAuthRejection(reason string)
}

// Authenticate はリクエストのBearerトークンを検証し、認証済み主体を返す。
// 失敗時は*auth.Errorを返す。トークン検証失敗の内訳（形式不正・署名不正・期限切れ）は
// すべてKindInvalidCredentialにまとめる。
func Authenticate(r *http.Request, parser TokenParser) (model.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return model.Principal{}, &auth.Error{Kind: auth.KindMissingCredential}
	}

	raw, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return model.Principal{}, &auth.Error{Kind: auth.KindMalformedCredential}
	}

	claims, err := parser.Parse(raw)
	if err != nil {
		return model.Principal{}, &auth.Error{Kind: auth.KindInvalidCredential, Err: err}
	}

	return claims.Principal(), nil
}

// NewAuthMiddleware はBearerトークンを検証し、認証済み主体をコンテキストに注入するミドルウェアを返す。
// 失敗時は種別にかかわらず同一の401レスポンスを返す。recはnilでもよい。
func NewAuthMiddleware(parser TokenParser, rec AuthRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := Authenticate(r, parser)
			if err != nil {
				reason := "unknown"
				var authErr *auth.Error
				if errors.As(err, &authErr) {
					reason = authErr.Kind.String()
				}
				if rec != nil {
					rec.RecordAuthRejection(reason)
				}

				attrs := []any{
					slog.String("reason", reason),
					slog.String("path", r.URL.Path),
				}
				var tokErr *token.Error
				if errors.As(err, &tokErr) {
					attrs = append(attrs, slog.String("token_error", tokErr.Kind.String()))
				}
				slog.Debug("request rejected by auth middleware", attrs...)

				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			annotateSubject(r.Context(), principal.SubjectID)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole は認証済み主体が指定roleを持つ場合のみ後続ハンドラーを実行するミドルウェアを返す。
// NewAuthMiddlewareの内側に配置する。主体がコンテキストにない場合は401を返す。
func RequireRole(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if principal.Role != role {
				slog.Warn("request rejected by role gate",
					slog.String("subject_id", principal.SubjectID),
					slog.String("role", string(principal.Role)),
					slog.String("required_role", string(role)),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証済み主体を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(model.Principal)
	if !ok || p.SubjectID == "" {
		return model.Principal{}, false
	}
	return p, true
}

// ContextWithPrincipal はコンテキストに認証済み主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalHandlerFunc は認証済み主体を明示的な引数として受け取るハンドラー。
type PrincipalHandlerFunc func(w http.ResponseWriter, r *http.Request, p model.Principal)

// WithPrincipal はPrincipalHandlerFuncをhttp.HandlerFuncに変換する。
// 主体がコンテキストにない場合は401を返し、fnは呼ばない。
func WithPrincipal(fn PrincipalHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		fn(w, r, p)
	}
}
