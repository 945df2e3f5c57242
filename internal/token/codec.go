// Package token は署名付きの自己完結型セッショントークン（HS256 JWT）の発行と検証を提供する。
//
// サーバー側にセッション状態は持たない。トークンは発行時に now + TTL の有効期限が固定され、
// 期限到来で暗黙に失効する。失効リストは持たない。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/careerhub/internal/model"
)

// Issuer はトークンのiss claimに設定する値。
const Issuer = "careerhub"

// DefaultTTL はトークンの既定の有効期間。
const DefaultTTL = 24 * time.Hour

// ErrMissingKey は署名鍵が空の場合に返る。
var ErrMissingKey = errors.New("token: signing key is required")

// Kind はトークン検証失敗の種別。
type Kind int

const (
	// KindMalformed は構造として解析できないトークン。
	KindMalformed Kind = iota + 1
	// KindBadSignature は署名が検証できないトークン。
	KindBadSignature
	// KindExpired は有効期限切れのトークン。
	KindExpired
)

// String は種別名を返す。
func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindBadSignature:
		return "bad_signature"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Error はトークン検証の失敗を表す。いずれの種別もリクエストにとって終端である。
type Error struct {
	Kind Kind
	Err  error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + e.Kind.String()
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind はerrがkind種別の*Errorかどうかを返す。
func IsKind(err error, kind Kind) bool {
	var tokErr *Error
	return errors.As(err, &tokErr) && tokErr.Kind == kind
}

// Claims はトークンに埋め込まれるセッション情報。
// 時刻は秒精度（UTC）で保持する。
type Claims struct {
	Subject   string
	Email     string
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal はClaimsから下流ハンドラー向けの主体情報を取り出す。
func (c Claims) Principal() model.Principal {
	return model.Principal{SubjectID: c.Subject, Role: c.Role}
}

// jwtClaims はJWTペイロードのJSON表現。
type jwtClaims struct {
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Option はCodecの設定を変更する。
type Option func(*Codec)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec はセッショントークンの発行と検証を行う。
// 鍵とTTLは生成後に変更されないため、並行に利用できる。
type Codec struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec はCodecを生成する。ttlが0以下の場合はDefaultTTLを使用する。
func NewCodec(key []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Codec{
		key: append([]byte(nil), key...),
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// TTL はトークンの有効期間を返す。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// NewClaims は現在時刻を基準にiat/expを固定したClaimsを生成する。
func (c *Codec) NewClaims(subject string, role model.Role, email string) Claims {
	now := c.now().UTC().Truncate(time.Second)
	return Claims{
		Subject:   subject,
		Email:     email,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
}

// Issue はClaimsに署名したコンパクトなURLセーフ文字列を返す。
func (c *Codec) Issue(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("token: subject is required")
	}
	if !claims.Role.Valid() {
		return "", fmt.Errorf("token: invalid role %q", claims.Role)
	}
	if claims.ExpiresAt.IsZero() {
		return "", errors.New("token: expiry is required")
	}

	payload := jwtClaims{
		Email: claims.Email,
		Role:  claims.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証しClaimsを返す。
// 署名検証はclaimの評価より先に行われ、署名が不正なトークンのroleは一切参照しない。
func (c *Codec) Parse(tokenString string) (Claims, error) {
	payload := &jwtClaims{}
	tok, err := c.parser.ParseWithClaims(tokenString, payload, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}
	if !tok.Valid {
		return Claims{}, &Error{Kind: KindBadSignature}
	}

	// ここから先は署名検証済みのclaimのみを扱う
	if _, err := uuid.Parse(payload.Subject); err != nil {
		return Claims{}, &Error{Kind: KindMalformed, Err: fmt.Errorf("invalid subject: %w", err)}
	}
	if !payload.Role.Valid() {
		return Claims{}, &Error{Kind: KindMalformed, Err: fmt.Errorf("invalid role %q", payload.Role)}
	}
	if payload.IssuedAt == nil {
		return Claims{}, &Error{Kind: KindMalformed, Err: errors.New("missing iat")}
	}

	return Claims{
		Subject:   payload.Subject,
		Email:     payload.Email,
		Role:      payload.Role,
		IssuedAt:  payload.IssuedAt.Time.UTC(),
		ExpiresAt: payload.ExpiresAt.Time.UTC(),
	}, nil
}

// classify はjwtライブラリのエラーを3種別に分類する。
// 期限切れは署名検証成功後にのみ判定されるため、署名不正を優先する。
func classify(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &Error{Kind: KindBadSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &Error{Kind: KindExpired, Err: err}
	default:
		return &Error{Kind: KindMalformed, Err: err}
	}
}
