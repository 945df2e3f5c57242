// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Role はユーザーの権限区分を表す。
// user と admin の2値のみを取る閉じた集合。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// Valid はroleが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// User は認証済み主体として外部に公開してよいユーザー情報を表す。
// パスワードダイジェストは含まない。
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential はUserとパスワードダイジェストの組。
// リポジトリ層と認証サービスの内部でのみ扱い、レスポンスやログには出さない。
type Credential struct {
	User
	PasswordHash string
}

// NewUser はプロフィール項目付きで新規登録するユーザーの入力値。
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
}

// Principal はリクエストに紐付く認証済み主体（subject ID + role）を表す。
// 認証ミドルウェアが生成し、リクエスト終了とともに破棄される。
type Principal struct {
	SubjectID string
	Role      Role
}

// NormalizeEmail は検索・保存用にメールアドレスを正規化する。
// 前後の空白を除去し小文字化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserStats はロール別のユーザー数の集計結果。
type UserStats struct {
	TotalUsers  int
	UsersByRole map[Role]int
}
