// Package auth はメールアドレスとパスワードによるユーザー登録とログインを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/careerhub/internal/model"
)

// パスワード長の制約（バイト数）
const (
	MinPasswordLen = 8
	MaxPasswordLen = 256
)

// 未登録メールアドレスでのログイン時に照合するダミーパスワード。
const dummyPassword = "careerhub-dummy-password"

// メトリクスのresultラベル値
const (
	ResultSuccess            = "success"
	ResultConflict           = "conflict"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInvalidInput       = "invalid_input"
	ResultError              = "error"
)

// CredentialStore は認証に必要な資格情報の読み書きインターフェース。
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	Insert(ctx context.Context, user *model.NewUser) (*model.User, error)
}

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// TextSanitizer はプロフィール項目のサニタイズインターフェース。
type TextSanitizer interface {
	SanitizeText(s string) string
}

// Recorder は認証結果のメトリクス記録インターフェース。
type Recorder interface {
	RecordLogin(result string)
	RecordRegistration(result string)
	RecordPasswordHash(op string, duration time.Duration)
}

// RegisterInput はユーザー登録の入力値。
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Service は認証に関するビジネスロジックを提供する。
// 状態はダミーダイジェストのみで、複数goroutineから同時に利用できる。
type Service struct {
	store     CredentialStore
	hasher    PasswordHasher
	sanitizer TextSanitizer
	recorder  Recorder

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService はServiceを生成する。sanitizerとrecorderはnilでもよい。
func NewService(
	store CredentialStore,
	hasher PasswordHasher,
	sanitizer TextSanitizer,
	recorder Recorder,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		store:     store,
		hasher:    hasher,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// Register は新規ユーザーを登録する。
// メールアドレスが登録済みの場合は*ConflictErrorを返す。
// 戻り値のUserにパスワードダイジェストは含まれない。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := model.NormalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		s.recorder.RecordRegistration(ResultInvalidInput)
		return nil, err
	}

	firstName := s.sanitize(in.FirstName)
	lastName := s.sanitize(in.LastName)

	digest, err := s.hash(in.Password)
	if err != nil {
		s.recorder.RecordRegistration(ResultError)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Insert(ctx, &model.NewUser{
		Email:        email,
		PasswordHash: digest,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         model.RoleUser,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailConflict) {
			s.recorder.RecordRegistration(ResultConflict)
			return nil, &ConflictError{Email: email}
		}
		s.recorder.RecordRegistration(ResultError)
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	s.recorder.RecordRegistration(ResultSuccess)
	slog.Info("user registered",
		slog.String("subject_id", user.ID),
	)

	return user, nil
}

// Login はメールアドレスとパスワードを照合し、一致したユーザーを返す。
// 未登録のメールアドレスとパスワード不一致はどちらも同じKindInvalidCredentialとなる。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		s.recorder.RecordLogin(ResultInvalidCredentials)
		return nil, &Error{Kind: KindInvalidCredential}
	}

	cred, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		s.recorder.RecordLogin(ResultError)
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	if cred == nil {
		// 登録済みの場合と同じコストを払う
		s.verifyDummy(password)
		s.recorder.RecordLogin(ResultInvalidCredentials)
		return nil, &Error{Kind: KindInvalidCredential}
	}

	ok, err := s.verify(password, cred.PasswordHash)
	if err != nil {
		// 保存済みダイジェストが壊れている。呼び出し元には不一致と同じ結果を返す。
		slog.Error("stored password digest is unreadable",
			slog.String("subject_id", cred.ID),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordLogin(ResultInvalidCredentials)
		return nil, &Error{Kind: KindInvalidCredential, Err: err}
	}
	if !ok {
		s.recorder.RecordLogin(ResultInvalidCredentials)
		return nil, &Error{Kind: KindInvalidCredential}
	}

	s.recorder.RecordLogin(ResultSuccess)
	user := cred.User
	return &user, nil
}

func (s *Service) sanitize(v string) string {
	if s.sanitizer == nil {
		return v
	}
	return s.sanitizer.SanitizeText(v)
}

func (s *Service) hash(password string) (string, error) {
	start := time.Now()
	digest, err := s.hasher.Hash(password)
	s.recorder.RecordPasswordHash("hash", time.Since(start))
	return digest, err
}

func (s *Service) verify(password, digest string) (bool, error) {
	start := time.Now()
	ok, err := s.hasher.Verify(password, digest)
	s.recorder.RecordPasswordHash("verify", time.Since(start))
	return ok, err
}

// verifyDummy はダミーダイジェストに対して照合を行い、結果を捨てる。
func (s *Service) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("failed to prepare dummy digest", slog.String("error", err.Error()))
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest == "" {
		return
	}
	_, _ = s.verify(password, s.dummyDigest)
}

// validateCredentials は登録時のメールアドレスとパスワードの最低限の制約を検証する。
// 書式の詳細な検証はハンドラー層で行う。
func validateCredentials(email, password string) error {
	if email == "" {
		return &model.ValidationError{Field: "email", Reason: "required"}
	}
	if utf8.RuneCountInString(email) > 320 {
		return &model.ValidationError{Field: "email", Reason: "too long"}
	}
	if len(password) < MinPasswordLen {
		return &model.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d bytes", MinPasswordLen)}
	}
	if len(password) > MaxPasswordLen {
		return &model.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordLen)}
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string)                       {}
func (nopRecorder) RecordRegistration(string)                {}
func (nopRecorder) RecordPasswordHash(string, time.Duration) {}
