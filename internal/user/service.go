// Package user はクリニック内のユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/repository"
	"github.com/hitoshi/clinicman/internal/validate"
)

// CreateInput はユーザー作成の入力。
type CreateInput struct {
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// Validate は入力値を検証する。
func (in *CreateInput) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Password, PasswordRules()...),
		validation.Field(&in.Role, validation.Required, validation.In(model.RoleAdmin, model.RoleStaff)),
	)
}

// UpdateInput はユーザー更新の入力。
type UpdateInput struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

// Validate は入力値を検証する。
func (in *UpdateInput) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Role, validation.Required, validation.In(model.RoleAdmin, model.RoleStaff)),
	)
}

// ChangePasswordInput はパスワード変更の入力。
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Validate は入力値を検証する。
func (in *ChangePasswordInput) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.CurrentPassword, validation.Required),
		validation.Field(&in.NewPassword, PasswordRules()...),
	)
}

// PasswordRules はパスワードの検証ルールを返す。
// bcrypt の上限はバイト数なので文字数とは別に検査する。
func PasswordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(auth.MinPasswordLength, 0),
		validation.By(func(value interface{}) error {
			if s, _ := value.(string); len(s) > auth.MaxPasswordLength {
				return fmt.Errorf("%dバイト以下で入力してください", auth.MaxPasswordLength)
			}
			return nil
		}),
	}
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo   repository.UserRepository
	bcryptCost int
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, bcryptCost int) *Service {
	return &Service{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// List はクリニックのユーザー一覧を返す。
func (s *Service) List(ctx context.Context, clinicID string, page model.Page) ([]*model.User, int, error) {
	users, total, err := s.userRepo.ListByClinic(ctx, clinicID, page.Normalize())
	if err != nil {
		return nil, 0, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, total, nil
}

// Get はクリニック内のユーザーを取得する。
func (s *Service) Get(ctx context.Context, clinicID, id string) (*model.User, error) {
	user, err := s.userRepo.FindInClinic(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Create はクリニックにユーザーを追加する。
func (s *Service) Create(ctx context.Context, clinicID string, in CreateInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		ClinicID:     clinicID,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewEmailTakenError(in.Email)
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", user.ID),
		slog.String("clinic_id", clinicID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Update はユーザーの氏名と権限を更新する。
func (s *Service) Update(ctx context.Context, clinicID, id string, in UpdateInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	user.Name = in.Name
	user.Role = in.Role
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return user, nil
}

// Deactivate はユーザーを無効化する。無効化されたユーザーは次のリクエストから認証されない。
// 操作者自身は無効化できない。
func (s *Service) Deactivate(ctx context.Context, clinicID, actorID, id string) error {
	if actorID == id {
		return model.NewCannotDeactivateSelfError()
	}
	return s.setActive(ctx, clinicID, id, false)
}

// Reactivate は無効化されたユーザーを再度有効にする。
func (s *Service) Reactivate(ctx context.Context, clinicID, id string) error {
	return s.setActive(ctx, clinicID, id, true)
}

func (s *Service) setActive(ctx context.Context, clinicID, id string, active bool) error {
	if err := s.userRepo.SetActive(ctx, clinicID, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの有効状態の更新に失敗しました: %w", err)
	}

	slog.Info("ユーザーの有効状態を変更しました",
		slog.String("user_id", id),
		slog.String("clinic_id", clinicID),
		slog.Bool("active", active),
	)
	return nil
}

// ChangePassword は現在のパスワードを確認したうえで新しいパスワードに変更する。
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	if err := auth.ComparePassword(user.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return model.NewPasswordMismatchError()
		}
		return err
	}

	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	slog.Info("パスワードを変更しました", slog.String("user_id", userID))
	return nil
}
