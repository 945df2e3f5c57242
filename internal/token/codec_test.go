package token

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/careerhub/internal/model"
)

const (
	testKey     = "test-signing-key-at-least-32-bytes!!"
	testSubject = "2f1c7a52-0d7e-4b3a-9c1e-5f2b8a3d4e60"
)

// fixedClock はテスト用の固定時刻を返す。
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCodec(t *testing.T, clock *fixedClock) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(testKey), time.Hour, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return c
}

func TestNewCodec_EmptyKey_ReturnsError(t *testing.T) {
	if _, err := NewCodec(nil, time.Hour); !errors.Is(err, ErrMissingKey) {
		t.Errorf("NewCodec(nil) error = %v, want ErrMissingKey", err)
	}
}

func TestNewCodec_ZeroTTL_UsesDefault(t *testing.T) {
	c, err := NewCodec([]byte(testKey), 0)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	if c.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", c.TTL(), DefaultTTL)
	}
}

func TestNewClaims_FixesExpiryAtNowPlusTTL(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 0, 0, 500, time.UTC)}
	c := newTestCodec(t, clock)

	claims := c.NewClaims(testSubject, model.RoleUser, "a@x.com")

	wantIat := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !claims.IssuedAt.Equal(wantIat) {
		t.Errorf("IssuedAt = %v, want %v", claims.IssuedAt, wantIat)
	}
	if !claims.ExpiresAt.Equal(wantIat.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, wantIat.Add(time.Hour))
	}
}

func TestIssueParse_RoundTrip(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	c := newTestCodec(t, clock)

	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			want := c.NewClaims(testSubject, role, "a@x.com")

			tok, err := c.Issue(want)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			got, err := c.Parse(tok)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			if got.Subject != want.Subject || got.Email != want.Email || got.Role != want.Role {
				t.Errorf("Parse() = %+v, want %+v", got, want)
			}
			if !got.IssuedAt.Equal(want.IssuedAt) || !got.ExpiresAt.Equal(want.ExpiresAt) {
				t.Errorf("timestamps = (%v, %v), want (%v, %v)", got.IssuedAt, got.ExpiresAt, want.IssuedAt, want.ExpiresAt)
			}
		})
	}
}

func TestIssue_TokenIsURLSafe(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})

	tok, err := c.Issue(c.NewClaims(testSubject, model.RoleUser, "a@x.com"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.ContainsAny(tok, "+/= ") {
		t.Errorf("token %q contains non URL-safe characters", tok)
	}
	if strings.Count(tok, ".") != 2 {
		t.Errorf("token %q should have 3 segments", tok)
	}
}

func TestIssue_RejectsIncompleteClaims(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})
	valid := c.NewClaims(testSubject, model.RoleUser, "a@x.com")

	tests := []struct {
		name   string
		mutate func(*Claims)
	}{
		{"empty subject", func(cl *Claims) { cl.Subject = "" }},
		{"unknown role", func(cl *Claims) { cl.Role = "superuser" }},
		{"zero expiry", func(cl *Claims) { cl.ExpiresAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := valid
			tt.mutate(&cl)
			if _, err := c.Issue(cl); err == nil {
				t.Error("Issue() error = nil, want error")
			}
		})
	}
}

func TestParse_TamperedSignature_ReturnsBadSignature(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})

	tok, err := c.Issue(c.NewClaims(testSubject, model.RoleUser, "a@x.com"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	sigStart := strings.LastIndex(tok, ".") + 1
	// 末尾の文字は未使用ビットを含むため中央の文字を書き換える
	pos := sigStart + (len(tok)-sigStart)/2
	replacement := byte('A')
	if tok[pos] == 'A' {
		replacement = 'B'
	}
	tampered := tok[:pos] + string(replacement) + tok[pos+1:]

	_, err = c.Parse(tampered)
	if !IsKind(err, KindBadSignature) {
		t.Errorf("Parse(tampered) error = %v, want KindBadSignature", err)
	}
}

func TestParse_TamperedPayloadRole_ReturnsBadSignature(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})
	userClaims := c.NewClaims(testSubject, model.RoleUser, "a@x.com")
	adminClaims := userClaims
	adminClaims.Role = model.RoleAdmin

	userTok, err := c.Issue(userClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	adminTok, err := c.Issue(adminClaims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// admin のペイロードに user の署名を付け替える
	u := strings.Split(userTok, ".")
	a := strings.Split(adminTok, ".")
	forged := a[0] + "." + a[1] + "." + u[2]

	_, err = c.Parse(forged)
	if !IsKind(err, KindBadSignature) {
		t.Errorf("Parse(forged) error = %v, want KindBadSignature", err)
	}
}

func TestParse_DifferentKey_ReturnsBadSignature(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	issuer := newTestCodec(t, clock)
	other, err := NewCodec([]byte("another-signing-key-of-32-bytes-len!"), time.Hour, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	tok, err := issuer.Issue(issuer.NewClaims(testSubject, model.RoleAdmin, "a@x.com"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := other.Parse(tok); !IsKind(err, KindBadSignature) {
		t.Errorf("Parse() error = %v, want KindBadSignature", err)
	}
}

func TestParse_AlgNone_ReturnsBadSignature(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   testSubject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := c.Parse(tok); !IsKind(err, KindBadSignature) {
		t.Errorf("Parse(alg=none) error = %v, want KindBadSignature", err)
	}
}

func TestParse_Expired(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	c := newTestCodec(t, clock)

	claims := c.NewClaims(testSubject, model.RoleUser, "a@x.com")
	claims.ExpiresAt = claims.IssuedAt.Add(-time.Second)

	tok, err := c.Issue(claims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := c.Parse(tok); !IsKind(err, KindExpired) {
		t.Errorf("Parse() error = %v, want KindExpired", err)
	}
}

func TestParse_ExactlyAtExpiry_IsExpired(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, clock)

	tok, err := c.Issue(c.NewClaims(testSubject, model.RoleUser, "a@x.com"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(time.Hour - time.Second)
	if _, err := c.Parse(tok); err != nil {
		t.Fatalf("Parse() before expiry error = %v", err)
	}

	clock.Advance(time.Second)
	if _, err := c.Parse(tok); !IsKind(err, KindExpired) {
		t.Errorf("Parse() at expiry error = %v, want KindExpired", err)
	}
}

func TestParse_ExpiredWithBadSignature_ReportsBadSignature(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	c := newTestCodec(t, clock)
	other, err := NewCodec([]byte("another-signing-key-of-32-bytes-len!"), time.Hour, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	claims := other.NewClaims(testSubject, model.RoleAdmin, "a@x.com")
	claims.ExpiresAt = claims.IssuedAt.Add(-time.Minute)
	tok, err := other.Issue(claims)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := c.Parse(tok); !IsKind(err, KindBadSignature) {
		t.Errorf("Parse() error = %v, want KindBadSignature", err)
	}
}

func TestParse_Malformed(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "abc"},
		{"two segments", "aaa.bbb"},
		{"non base64 header", "!!!.e30.sig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Parse(tt.token); !IsKind(err, KindMalformed) {
				t.Errorf("Parse(%q) error = %v, want KindMalformed", tt.token, err)
			}
		})
	}
}

func TestParse_SignedButNonUUIDSubject_ReturnsMalformed(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Role: model.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "not-a-uuid",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tok, err := raw.SignedString([]byte(testKey))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := c.Parse(tok); !IsKind(err, KindMalformed) {
		t.Errorf("Parse() error = %v, want KindMalformed", err)
	}
}

func TestParse_SignedButMissingExpiry_ReturnsMalformed(t *testing.T) {
	c := newTestCodec(t, &fixedClock{now: time.Now()})

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Role: model.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Subject:  testSubject,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})
	tok, err := raw.SignedString([]byte(testKey))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	if _, err := c.Parse(tok); !IsKind(err, KindMalformed) {
		t.Errorf("Parse() error = %v, want KindMalformed", err)
	}
}
