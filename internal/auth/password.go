package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

// MaxPasswordLength は bcrypt が扱える最大バイト長。
const MaxPasswordLength = 72

// ErrPasswordMismatch はハッシュとパスワードが一致しない場合に返す。
var ErrPasswordMismatch = errors.New("password does not match")

// HashPassword は bcrypt でパスワードをハッシュ化する。
// cost が範囲外の場合は bcrypt.DefaultCost を使う。
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword はハッシュとパスワードを比較する。
// 不一致の場合は ErrPasswordMismatch を返す。
func ComparePassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("failed to compare password: %w", err)
}
