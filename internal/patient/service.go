// Package patient は患者台帳のドメインロジックを提供する。
package patient

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

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/phone"
	"github.com/hitoshi/clinicman/internal/repository"
	"github.com/hitoshi/clinicman/internal/security"
	"github.com/hitoshi/clinicman/internal/validate"
)

// birthDateLayout は生年月日の入出力形式。
const birthDateLayout = "2006-01-02"

// Input は患者の作成・更新の入力。
type Input struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	BirthDate string `json:"birth_date"`
	Notes     string `json:"notes"`
}

// Service は患者台帳のサービス層。
type Service struct {
	repo      repository.PatientRepository
	phones    *phone.Normalizer
	sanitizer security.NotesSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.PatientRepository, phones *phone.Normalizer, sanitizer security.NotesSanitizerService) *Service {
	return &Service{
		repo:      repo,
		phones:    phones,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

func (s *Service) validate(in *Input) error {
	return validate.Struct(in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Phone, s.phones.Rule()),
		validation.Field(&in.Email, validation.Length(0, 254), is.Email),
		validation.Field(&in.BirthDate, validation.Date(birthDateLayout).Max(s.now())),
		validation.Field(&in.Notes, validation.Length(0, 10000)),
	)
}

// apply は検証済みの入力を正規化して患者に反映する。
func (s *Service) apply(p *model.Patient, in Input) error {
	normalized, err := s.phones.Normalize(in.Phone)
	if err != nil {
		return model.NewValidationError(map[string]string{"phone": "電話番号の形式が正しくありません"})
	}

	var birthDate *time.Time
	if in.BirthDate != "" {
		d, err := time.Parse(birthDateLayout, in.BirthDate)
		if err != nil {
			return model.NewValidationError(map[string]string{"birth_date": "日付の形式が正しくありません"})
		}
		birthDate = &d
	}

	p.Name = in.Name
	p.Phone = normalized
	p.Email = in.Email
	p.BirthDate = birthDate
	p.Notes = s.sanitizer.Sanitize(in.Notes)
	return nil
}

func trimInput(in *Input) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.BirthDate = strings.TrimSpace(in.BirthDate)
}

// List は条件に合致する患者の一覧と総件数を返す。
func (s *Service) List(ctx context.Context, clinicID string, filter model.PatientFilter) ([]*model.Patient, int, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Page = filter.Page.Normalize()
	patients, total, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("患者一覧の取得に失敗しました: %w", err)
	}
	return patients, total, nil
}

// Get は患者を取得する。
func (s *Service) Get(ctx context.Context, clinicID, id string) (*model.Patient, error) {
	p, err := s.repo.FindByID(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("患者の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPatientNotFoundError(id)
	}
	return p, nil
}

// Create は患者を登録する。
func (s *Service) Create(ctx context.Context, clinicID string, in Input) (*model.Patient, error) {
	trimInput(&in)
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &model.Patient{
		ID:        uuid.NewString(),
		ClinicID:  clinicID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("患者の登録に失敗しました: %w", err)
	}

	slog.Info("患者を登録しました",
		slog.String("patient_id", p.ID),
		slog.String("clinic_id", clinicID),
	)
	return p, nil
}

// Update は患者情報を更新する。
func (s *Service) Update(ctx context.Context, clinicID, id string, in Input) (*model.Patient, error) {
	trimInput(&in)
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPatientNotFoundError(id)
		}
		return nil, fmt.Errorf("患者の更新に失敗しました: %w", err)
	}
	return p, nil
}

// Delete は患者を論理削除（active=false）する。
// 施術・請求の履歴を残すため行は削除しない。
func (s *Service) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.repo.SetActive(ctx, clinicID, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewPatientNotFoundError(id)
		}
		return fmt.Errorf("患者の削除に失敗しました: %w", err)
	}

	slog.Info("患者を無効化しました",
		slog.String("patient_id", id),
		slog.String("clinic_id", clinicID),
	)
	return nil
}

// Restore は論理削除された患者を復元する。
func (s *Service) Restore(ctx context.Context, clinicID, id string) error {
	if err := s.repo.SetActive(ctx, clinicID, id, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewPatientNotFoundError(id)
		}
		return fmt.Errorf("患者の復元に失敗しました: %w", err)
	}
	return nil
}

// Exists は患者がクリニックに存在するかを確認し、存在しなければ PATIENT_NOT_FOUND を返す。
// 他ドメインのサービスから参照整合性の確認に使う。
func (s *Service) Exists(ctx context.Context, clinicID, id string) error {
	_, err := s.Get(ctx, clinicID, id)
	return err
}
