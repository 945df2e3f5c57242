// Package user はユーザー情報の参照と集計のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/careerhub/internal/model"
)

// Repository はユーザーサービスが必要とする読み取り専用のリポジトリ。
type Repository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	CountByRole(ctx context.Context) (map[model.Role]int, error)
}

// Service はユーザー管理のサービス層。
type Service struct {
	repo Repository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetProfile は認証済み主体のユーザー情報をストアから再取得する。
// トークン発行後に削除されたユーザーの場合はUSER_NOT_FOUNDを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Stats はロール別のユーザー数を集計する。
func (s *Service) Stats(ctx context.Context) (*model.UserStats, error) {
	counts, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー数の集計に失敗しました: %w", err)
	}

	stats := &model.UserStats{UsersByRole: make(map[model.Role]int, 2)}
	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		stats.UsersByRole[role] = counts[role]
		stats.TotalUsers += counts[role]
	}
	return stats, nil
}
