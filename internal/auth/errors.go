package auth

import (
	"errors"

	"github.com/hitoshi/careerhub/internal/model"
)

// Kind は認証・認可失敗の種別。
type Kind int

const (
	// KindMissingCredential はAuthorizationヘッダーが存在しない。
	KindMissingCredential Kind = iota + 1
	// KindMalformedCredential はBearerスキームではない。
	KindMalformedCredential
	// KindInvalidCredential はトークンまたはパスワードが検証できない。
	KindInvalidCredential
	// KindForbidden は認証済みだが必要なroleを持たない。
	KindForbidden
)

// String はメトリクスやログで使う種別名を返す。
func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindMalformedCredential:
		return "malformed_credential"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error は認証・認可の失敗を表す。
// Forbidden以外の種別はクライアントに対して区別せずに返す。
type Error struct {
	Kind Kind
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return "auth " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "auth " + e.Kind.String()
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind はerrがkind種別の*Errorかどうかを返す。
func IsKind(err error, kind Kind) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == kind
}

// ConflictError はメールアドレスが既に登録済みの場合に返る。
type ConflictError struct {
	Email string
}

// Error はerrorインターフェースを実装する。
func (e *ConflictError) Error() string {
	return "email already registered: " + e.Email
}

// Unwrap はmodel.ErrEmailConflictを返す。
func (e *ConflictError) Unwrap() error {
	return model.ErrEmailConflict
}
