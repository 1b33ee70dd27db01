package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/clinicman/internal/model"
)

// Identity は認証済みリクエストのコンテキストに載せるユーザーの射影。
// id, email, name 以外のフィールドは持たない。
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserLookup はゲートが使うユーザーストアの点参照。
// 該当なしの場合は nil, nil を返す。
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// TokenVerifier はトークンを検証し subject を返す。
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// Gate は Bearer トークンを検証し、リクエストを認可するかを判定する。
// リクエストをまたぐ状態は持たない。
type Gate struct {
	tokens TokenVerifier
	users  UserLookup
}

// NewGate は Gate を生成する。
func NewGate(tokens TokenVerifier, users UserLookup) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// Authenticate は Authorization ヘッダの値を検証し、Identity を返す。
// 失敗時のエラーは常に *AuthError。ユーザーストアへの読み取りは高々1回。
func (g *Gate) Authenticate(ctx context.Context, authorization string) (Identity, error) {
	raw, ok := bearerToken(authorization)
	if !ok {
		return Identity{}, newAuthError(KindMissingToken, nil)
	}

	subject, err := g.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Identity{}, newAuthError(KindTokenExpired, err)
		}
		return Identity{}, newAuthError(KindTokenInvalid, err)
	}

	// 署名済みでも subject がユーザーIDの形式でなければ不正トークンとして扱う
	if _, err := uuid.Parse(subject); err != nil {
		return Identity{}, newAuthError(KindTokenInvalid, err)
	}

	user, err := g.users.FindByID(ctx, subject)
	if err != nil {
		return Identity{}, newAuthError(KindInternalError, err)
	}
	if user == nil || !user.Active {
		return Identity{}, newAuthError(KindUserNotFound, nil)
	}

	return Identity{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}, nil
}

// bearerToken は "Bearer <token>" 形式のヘッダからトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
