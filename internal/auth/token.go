package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength はHS256署名鍵として受け付ける最小バイト長。
const MinSecretLength = 32

// TokenConfig はトークンの発行・検証に使う設定。
// 環境変数からではなく、起動時に明示的に注入する。
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Leeway は exp 判定時に許容する時計のずれ。
	Leeway time.Duration
}

// TokenManager はHS256署名のアクセストークンを発行・検証する。
// サーバー側にトークンの状態は保持しない。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewTokenManager は TokenManager を生成する。
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token TTL must be positive: %s", cfg.TTL)
	}
	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("token leeway must not be negative: %s", cfg.Leeway)
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenManager{
		secret: secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		now:    time.Now,
	}, nil
}

// Issue は userID を subject とするトークンと、その有効期限を返す。
func (m *TokenManager) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user ID is required")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify はトークンの署名と有効期限を検証し、subject を返す。
// 失敗時は ErrTokenExpired または ErrTokenInvalid をラップしたエラーを返す。
// 期限切れの判定は署名の正否より優先する。
func (m *TokenManager) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(raw, claims, m.keyFunc, m.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) && m.expiredUnverified(raw) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject is empty", ErrTokenInvalid)
	}

	return claims.Subject, nil
}

func (m *TokenManager) keyFunc(_ *jwt.Token) (interface{}, error) {
	return m.secret, nil
}

func (m *TokenManager) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.leeway))
	}
	return opts
}

// expiredUnverified は署名を検証せずに exp を読み、期限切れかどうかを返す。
// jwt/v5 は署名検証を期限判定より先に行うため、署名不一致時のみ使う。
func (m *TokenManager) expiredUnverified(raw string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !m.now().Before(claims.ExpiresAt.Add(m.leeway))
}
