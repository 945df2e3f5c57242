package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/repository"
)

// --- モック定義 ---

type mockRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	countByRoleFn func(ctx context.Context) (map[model.Role]int, error)
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockRepo) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	if m.countByRoleFn != nil {
		return m.countByRoleFn(ctx)
	}
	return map[model.Role]int{}, nil
}

var (
	_ Repository = (*mockRepo)(nil)
	_ Repository = (*repository.PostgresUserRepo)(nil)
)

func TestGetProfile_ExistingUser_ReturnsUser(t *testing.T) {
	svc := NewService(&mockRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@x.com", Role: model.RoleUser}, nil
		},
	})

	user, err := svc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if user.ID != "user-1" || user.Email != "a@x.com" {
		t.Errorf("GetProfile() = %+v", user)
	}
}

func TestGetProfile_DeletedUser_ReturnsUserNotFound(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.GetProfile(context.Background(), "user-1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

func TestGetProfile_RepoError_ReturnsWrappedError(t *testing.T) {
	dbErr := errors.New("db down")
	svc := NewService(&mockRepo{
		findByIDFn: func(context.Context, string) (*model.User, error) { return nil, dbErr },
	})

	if _, err := svc.GetProfile(context.Background(), "user-1"); !errors.Is(err, dbErr) {
		t.Errorf("GetProfile() error = %v, want wrapped db error", err)
	}
}

func TestStats_SumsRoles(t *testing.T) {
	svc := NewService(&mockRepo{
		countByRoleFn: func(context.Context) (map[model.Role]int, error) {
			return map[model.Role]int{model.RoleUser: 5, model.RoleAdmin: 2}, nil
		},
	})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalUsers != 7 {
		t.Errorf("TotalUsers = %d, want 7", stats.TotalUsers)
	}
	if stats.UsersByRole[model.RoleUser] != 5 || stats.UsersByRole[model.RoleAdmin] != 2 {
		t.Errorf("UsersByRole = %v", stats.UsersByRole)
	}
}

func TestStats_MissingRole_ZeroFilled(t *testing.T) {
	svc := NewService(&mockRepo{
		countByRoleFn: func(context.Context) (map[model.Role]int, error) {
			return map[model.Role]int{model.RoleUser: 3}, nil
		},
	})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if v, ok := stats.UsersByRole[model.RoleAdmin]; !ok || v != 0 {
		t.Errorf("UsersByRole[admin] = %v, %v; want 0, true", v, ok)
	}
}

func TestStats_RepoError_ReturnsError(t *testing.T) {
	svc := NewService(&mockRepo{
		countByRoleFn: func(context.Context) (map[model.Role]int, error) { return nil, errors.New("boom") },
	})

	if _, err := svc.Stats(context.Background()); err == nil {
		t.Error("expected error")
	}
}
