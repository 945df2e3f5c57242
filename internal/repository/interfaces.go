// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/careerhub/internal/model"
)

// CredentialStore は認証層が利用する資格情報ストアの最小インターフェース。
// usersテーブル自体はCRUD層が所有し、認証層はこの読み書き契約のみを消費する。
type CredentialStore interface {
	// FindByEmail は正規化済みメールアドレスで資格情報を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)

	// Insert は新規ユーザーを作成し、公開可能なUserを返す。
	// 一意性チェックと挿入は単一の原子的な操作で行い、
	// メールアドレスが重複する場合はmodel.ErrEmailConflictを返す。
	Insert(ctx context.Context, user *model.NewUser) (*model.User, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	CredentialStore

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CountByRole はroleごとのユーザー数を返す。
	CountByRole(ctx context.Context) (map[model.Role]int, error)
}
