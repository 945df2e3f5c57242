// Package password はパスワードの一方向ハッシュ化と照合を提供する。
//
// argon2id（メモリハード）を使用し、呼び出しごとにランダムなソルトを生成する。
// ソルトとコストパラメータはPHC形式のダイジェスト文字列に埋め込まれるため、
// 別途保存する必要はない。
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<hash>
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// デフォルトのargon2idパラメータ
const (
	DefaultTime      uint32 = 3
	DefaultMemoryKiB uint32 = 64 * 1024
	DefaultThreads   uint8  = 2
	DefaultSaltLen          = 16
	DefaultKeyLen    uint32 = 32
)

// ErrEmptyPassword は空のパスワードをハッシュ化しようとした場合に返る。
var ErrEmptyPassword = errors.New("password must not be empty")

// HashingError はハッシュ処理自体の失敗を表す。
// 乱数源の障害、またはダイジェスト文字列の構造不正の場合にのみ返る。
// パスワード不一致はエラーではなく false で表す。
type HashingError struct {
	Reason string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *HashingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("password hashing: %s: %v", e.Reason, e.Err)
	}
	return "password hashing: " + e.Reason
}

// Unwrap は原因エラーを返す。
func (e *HashingError) Unwrap() error {
	return e.Err
}

// Option はHasherのコストパラメータを設定する。
type Option func(*Hasher)

// WithTime は反復回数を設定する。0は無視する。
func WithTime(t uint32) Option {
	return func(h *Hasher) {
		if t > 0 {
			h.time = t
		}
	}
}

// WithMemory はメモリ使用量（KiB）を設定する。0は無視する。
func WithMemory(kib uint32) Option {
	return func(h *Hasher) {
		if kib > 0 {
			h.memory = kib
		}
	}
}

// WithThreads は並列度を設定する。0は無視する。
func WithThreads(p uint8) Option {
	return func(h *Hasher) {
		if p > 0 {
			h.threads = p
		}
	}
}

// Hasher はargon2idによるパスワードハッシャー。
// 起動時に1回生成し、以降は不変のため複数goroutineから同時に利用できる。
// グローバルなロックは持たない。
type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

// NewHasher はHasherを生成する。
func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{
		time:    DefaultTime,
		memory:  DefaultMemoryKiB,
		threads: DefaultThreads,
		saltLen: DefaultSaltLen,
		keyLen:  DefaultKeyLen,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash はパスワードのPHC形式ダイジェストを返す。
// 同じパスワードでも呼び出しごとに異なる文字列を返す。
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", &HashingError{Reason: "failed to generate salt", Err: err}
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify はパスワードがダイジェストに一致するかを返す。
// 不一致は (false, nil)。ダイジェストが解析できない場合のみ *HashingError を返す。
// 最終比較は定数時間で行う。
func (h *Hasher) Verify(password, digest string) (bool, error) {
	p, err := decode(digest)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))

	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// params はダイジェスト文字列から復元したパラメータ。
type params struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

// decode はPHC形式のダイジェストを解析する。
func decode(digest string) (*params, error) {
	parts := strings.Split(digest, "$")
	// "", "argon2id", "v=19", "m=...,t=...,p=...", salt, hash
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, &HashingError{Reason: "malformed digest"}
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, &HashingError{Reason: "unsupported argon2 version"}
	}

	p := &params{}
	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, &HashingError{Reason: "malformed digest parameters"}
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return nil, &HashingError{Reason: "malformed digest parameters", Err: err}
		}
		switch name {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, &HashingError{Reason: "malformed digest parameters"}
			}
			p.threads = uint8(n)
		default:
			return nil, &HashingError{Reason: "unknown digest parameter " + name}
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return nil, &HashingError{Reason: "missing digest parameters"}
	}

	var err error
	p.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(p.salt) == 0 {
		return nil, &HashingError{Reason: "malformed salt", Err: err}
	}
	p.key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(p.key) == 0 {
		return nil, &HashingError{Reason: "malformed hash", Err: err}
	}

	return p, nil
}
