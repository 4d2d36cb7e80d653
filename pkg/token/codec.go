// Package token はセッショントークン（HS256署名のJWT）の発行と検証を提供する。
//
// トークンは {user_id, email, role, exp} を持つ自己完結型の署名付き主張であり、
// サーバー側には保存しない。全サービスが同じ共有シークレットで独立に検証する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL はトークンの有効期間。
const DefaultTTL = 24 * time.Hour

// issuer はトークンの発行者名。
const issuer = "learnhub-auth"

var (
	// ErrExpired は署名は正しいが有効期限を過ぎたトークンを表す。
	ErrExpired = errors.New("token expired")
	// ErrMalformed は改ざん・破損・形式不正のトークンを表す。
	ErrMalformed = errors.New("malformed token")
	// ErrSubSecondExpiry は秒未満の端数を含む有効期限が指定されたことを表す。
	ErrSubSecondExpiry = errors.New("expiry must be a whole second")
)

// Claims はトークンに埋め込まれ署名される情報。
type Claims struct {
	// UserID はユーザーの一意識別子。
	UserID string
	// Email はユーザーのメールアドレス。
	Email string
	// Role はユーザーのロール。
	Role Role
	// ExpiresAt は有効期限（絶対時刻、秒単位）。
	ExpiresAt time.Time
}

// Principal はクレームから認証済み主体を取り出す。
func (c Claims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}

// jwtClaims はJWTペイロードのJSON表現。
type jwtClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Role はユーザーのロール。
	Role string `json:"role"`
}

// Codec は共有シークレットでトークンを署名・検証する。
// 生成後は不変であり、複数のgoroutineから同時に使用できる。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option はCodecの設定を変更する。
type Option func(*Codec)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec は新しいCodecを生成する。ttlが0以下の場合はDefaultTTLを使用する。
func NewCodec(secret string, ttl time.Duration, opts ...Option) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL はトークンの有効期間を返す。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue はクレームに署名してトークン文字列を返す。
//
// トークンの有効期限は秒単位で表現される。ExpiresAtを指定する場合は秒単位の時刻でなければならず、
// 秒未満の端数を含むとエラーを返す。未設定の場合は現在時刻+TTLを秒単位に切り捨てた時刻とする。
func (c *Codec) Issue(claims Claims) (string, error) {
	if claims.UserID == "" {
		return "", errors.New("user_idが空です")
	}
	if !claims.Role.Valid() {
		return "", fmt.Errorf("不正なロール: %q", claims.Role)
	}

	now := c.now()
	expiresAt := claims.ExpiresAt
	switch {
	case expiresAt.IsZero():
		expiresAt = now.Add(c.ttl).Truncate(time.Second)
	case !expiresAt.Equal(expiresAt.Truncate(time.Second)):
		return "", fmt.Errorf("%w: %s", ErrSubSecondExpiry, expiresAt.Format(time.RFC3339Nano))
	}

	payload := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   string(claims.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証してクレームを返す。
// 署名・形式が不正な場合はErrMalformed、署名は正しく期限切れの場合はErrExpiredを返す。
// 有効期限ちょうどの時刻までは有効とみなし、猶予時間は設けない。
func (c *Codec) Verify(tokenString string) (Claims, error) {
	parsed := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if parsed.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: expが存在しません", ErrMalformed)
	}
	role := Role(parsed.Role)
	if parsed.UserID == "" || !role.Valid() {
		return Claims{}, fmt.Errorf("%w: クレームが不正です", ErrMalformed)
	}

	claims := Claims{
		UserID:    parsed.UserID,
		Email:     parsed.Email,
		Role:      role,
		ExpiresAt: parsed.ExpiresAt.Time,
	}
	if c.now().After(claims.ExpiresAt) {
		return claims, ErrExpired
	}
	return claims, nil
}
