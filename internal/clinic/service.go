// Package clinic はクリニック（テナント）情報の参照・更新と初期構築を提供する。
package clinic

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
	"github.com/hitoshi/clinicman/internal/phone"
	"github.com/hitoshi/clinicman/internal/repository"
	"github.com/hitoshi/clinicman/internal/user"
	"github.com/hitoshi/clinicman/internal/validate"
)

// UpdateInput はクリニック情報更新の入力。
type UpdateInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// BootstrapInput はクリニックと最初の管理者を作成する入力。
type BootstrapInput struct {
	ClinicName    string `json:"clinic_name"`
	AdminEmail    string `json:"admin_email"`
	AdminName     string `json:"admin_name"`
	AdminPassword string `json:"admin_password"`
}

// Service はクリニック情報のサービス層。
type Service struct {
	repo       repository.ClinicRepository
	phones     *phone.Normalizer
	bcryptCost int
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ClinicRepository, phones *phone.Normalizer, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		phones:     phones,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Get は自クリニックの情報を返す。
func (s *Service) Get(ctx context.Context, clinicID string) (*model.Clinic, error) {
	clinic, err := s.repo.FindByID(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("クリニックの取得に失敗しました: %w", err)
	}
	if clinic == nil {
		return nil, model.NewClinicNotFoundError()
	}
	return clinic, nil
}

// Update は自クリニックの名称・住所・電話番号を更新する。電話番号はE.164形式で保存する。
func (s *Service) Update(ctx context.Context, clinicID string, in UpdateInput) (*model.Clinic, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	err := validate.Struct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Address, validation.Length(0, 500)),
		validation.Field(&in.Phone, s.phones.Rule()),
	)
	if err != nil {
		return nil, err
	}

	clinic, err := s.Get(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	normalized, err := s.phones.Normalize(in.Phone)
	if err != nil {
		return nil, model.NewValidationError(map[string]string{"phone": "電話番号の形式が正しくありません"})
	}

	clinic.Name = in.Name
	clinic.Address = in.Address
	clinic.Phone = normalized
	clinic.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, clinic); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewClinicNotFoundError()
		}
		return nil, fmt.Errorf("クリニックの更新に失敗しました: %w", err)
	}

	slog.Info("クリニック情報を更新しました", slog.String("clinic_id", clinicID))
	return clinic, nil
}

// Bootstrap はクリニックと最初の管理者ユーザーを作成する。運用コマンドから使う。
func (s *Service) Bootstrap(ctx context.Context, in BootstrapInput) (*model.Clinic, *model.User, error) {
	in.ClinicName = strings.TrimSpace(in.ClinicName)
	in.AdminEmail = strings.TrimSpace(in.AdminEmail)
	in.AdminName = strings.TrimSpace(in.AdminName)
	err := validate.Struct(&in,
		validation.Field(&in.ClinicName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.AdminEmail, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.AdminName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.AdminPassword, user.PasswordRules()...),
	)
	if err != nil {
		return nil, nil, err
	}

	hash, err := auth.HashPassword(in.AdminPassword, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	clinic := &model.Clinic{
		ID:        uuid.NewString(),
		Name:      in.ClinicName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	admin := &model.User{
		ID:           uuid.NewString(),
		ClinicID:     clinic.ID,
		Email:        in.AdminEmail,
		Name:         in.AdminName,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateWithAdmin(ctx, clinic, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, model.NewEmailTakenError(in.AdminEmail)
		}
		return nil, nil, fmt.Errorf("クリニックの初期構築に失敗しました: %w", err)
	}

	slog.Info("クリニックを作成しました",
		slog.String("clinic_id", clinic.ID),
		slog.String("admin_user_id", admin.ID),
	)
	return clinic, admin, nil
}
