package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/validate"
)

// UserStore はログインに必要なユーザー参照操作。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenIssuer はユーザーIDに対するアクセストークンを発行する。
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// LoginRequest はログイン要求を表す。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate は入力値を検証する。
func (r *LoginRequest) Validate() error {
	return validate.Struct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, MaxPasswordLength)),
	)
}

// LoginResult はログイン成功時に返すトークンとユーザー。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// Service はログインと現在ユーザーの参照を提供する。
type Service struct {
	users      UserStore
	tokens     TokenIssuer
	bcryptCost int

	dummyOnce sync.Once
	dummyHash string
}

// NewService は Service を生成する。bcryptCost は登録済みハッシュと同じコストを渡す。
func NewService(users UserStore, tokens TokenIssuer, bcryptCost int) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// compareDummy は未登録メールアドレスでも bcrypt 比較を行い、応答時間の差をなくす。
func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword("clinicman-dummy-password", s.bcryptCost)
		if err != nil {
			slog.Error("ダミーハッシュの生成に失敗しました", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = ComparePassword(s.dummyHash, password)
	}
}

// Login はメールアドレスとパスワードを照合し、アクセストークンを発行する。
// 未登録・無効化済み・パスワード不一致はすべて INVALID_CREDENTIALS とする。
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user == nil {
		s.compareDummy(req.Password)
		slog.Warn("ログイン失敗: 未登録のメールアドレス")
		return nil, model.NewInvalidCredentialsError()
	}

	if err := ComparePassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			slog.Warn("ログイン失敗: パスワード不一致", slog.String("user_id", user.ID))
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	if !user.Active {
		slog.Warn("ログイン失敗: 無効化されたユーザー", slog.String("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("ログイン成功",
		slog.String("user_id", user.ID),
		slog.String("clinic_id", user.ClinicID),
	)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// CurrentUser は認証済みユーザーのプロフィールを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.Active {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
