package auth

import (
	"errors"
	"net/http"
)

// ErrorKind は認証ゲートが返す失敗の種別。
type ErrorKind int

const (
	// KindMissingToken は Authorization ヘッダにBearerトークンが無い。
	KindMissingToken ErrorKind = iota + 1
	// KindTokenInvalid はトークンが不正な形式、または署名が一致しない。
	KindTokenInvalid
	// KindTokenExpired はトークンの有効期限が切れている。
	KindTokenExpired
	// KindUserNotFound はトークンの subject が有効なユーザーに対応しない。
	KindUserNotFound
	// KindInternalError はユーザーストアの障害など、クライアント起因でない失敗。
	KindInternalError
)

var (
	// ErrTokenExpired は TokenManager.Verify が期限切れトークンに対して返す。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid は TokenManager.Verify が検証できないトークンに対して返す。
	ErrTokenInvalid = errors.New("token invalid")
)

// String はメトリクスやログのラベルとして使う種別名を返す。
func (k ErrorKind) String() string {
	switch k {
	case KindMissingToken:
		return "missing_token"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	case KindUserNotFound:
		return "user_not_found"
	case KindInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// HTTPStatus は種別に対応するHTTPステータスコードを返す。
// InternalError のみ 500、それ以外は 401。
func (k ErrorKind) HTTPStatus() int {
	if k == KindInternalError {
		return http.StatusInternalServerError
	}
	return http.StatusUnauthorized
}

// Code はレスポンスボディの error フィールドに載せる値を返す。
// 期限切れと不正トークン以外は空文字列（フィールド省略）。
func (k ErrorKind) Code() string {
	switch k {
	case KindTokenExpired:
		return "TOKEN_EXPIRED"
	case KindTokenInvalid:
		return "INVALID_TOKEN"
	default:
		return ""
	}
}

// Message はクライアントに返す説明文を返す。
func (k ErrorKind) Message() string {
	switch k {
	case KindMissingToken:
		return "認証トークンがありません"
	case KindTokenInvalid:
		return "認証トークンが不正です"
	case KindTokenExpired:
		return "認証トークンの有効期限が切れています"
	case KindUserNotFound:
		return "ユーザーが見つからないか、無効化されています"
	default:
		return "認証処理中にエラーが発生しました"
	}
}

// AuthError は認証ゲートの失敗を表す。Err は原因（存在すれば）を保持する。
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "auth: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "auth: " + e.Kind.String()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// KindOf は err に含まれる AuthError の種別を返す。
// AuthError でない場合は KindInternalError とみなす。
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindInternalError
}

func newAuthError(kind ErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}
