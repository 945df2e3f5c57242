package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/careerhub/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByEmail はメールアドレスで資格情報を取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	cred := &model.Credential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, role, password_hash, created_at, updated_at
		 FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(
		&cred.ID, &cred.Email, &cred.FirstName, &cred.LastName, &cred.Role,
		&cred.PasswordHash, &cred.CreatedAt, &cred.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return cred, nil
}

// Insert はユーザーを作成する。
// 一意制約（lower(email)）を持つ単一のINSERT文で実行するため、
// 重複チェックと挿入の間に競合は発生せず、途中状態が観測されることもない。
func (r *PostgresUserRepo) Insert(ctx context.Context, nu *model.NewUser) (*model.User, error) {
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      role,
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		user.ID, user.Email, nu.PasswordHash, user.FirstName, user.LastName, string(user.Role),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrEmailConflict
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, role, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// CountByRole はroleごとのユーザー数を返す。該当ユーザーがいないroleは0で埋める。
func (r *PostgresUserRepo) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role, count(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	defer rows.Close()

	counts := map[model.Role]int{
		model.RoleUser:  0,
		model.RoleAdmin: 0,
	}
	for rows.Next() {
		var role model.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("failed to scan role count: %w", err)
		}
		counts[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate role counts: %w", err)
	}

	return counts, nil
}

// isUniqueViolation はerrが一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
