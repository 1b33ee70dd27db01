// Package calllog は患者との通話記録のドメインロジックを提供する。
package calllog

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
	"github.com/hitoshi/clinicman/internal/repository"
	"github.com/hitoshi/clinicman/internal/security"
	"github.com/hitoshi/clinicman/internal/validate"
)

// PatientChecker は患者がクリニックに存在するかを確認する。
type PatientChecker interface {
	Exists(ctx context.Context, clinicID, id string) error
}

// Input は通話記録の作成入力。CalledAtを省略した場合は現在時刻になる。
type Input struct {
	PatientID string              `json:"patient_id"`
	CalledAt  *time.Time          `json:"called_at"`
	Direction model.CallDirection `json:"direction"`
	Outcome   string              `json:"outcome"`
	Notes     string              `json:"notes"`
}

// Validate は入力値を検証する。
func (in *Input) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.PatientID, validation.Required, is.UUID),
		validation.Field(&in.Direction, validation.Required, validation.In(model.CallInbound, model.CallOutbound)),
		validation.Field(&in.Outcome, validation.Length(0, 200)),
		validation.Field(&in.Notes, validation.Length(0, 10000)),
	)
}

// Service は通話記録のサービス層。
type Service struct {
	repo      repository.CallRepository
	patients  PatientChecker
	sanitizer security.NotesSanitizerService
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.CallRepository, patients PatientChecker, sanitizer security.NotesSanitizerService) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// List は通話記録の一覧と総件数を新しい順に返す。
func (s *Service) List(ctx context.Context, clinicID string, filter model.CallFilter) ([]*model.Call, int, error) {
	filter.Page = filter.Page.Normalize()

	calls, total, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("通話記録一覧の取得に失敗しました: %w", err)
	}
	return calls, total, nil
}

// Get は通話記録を取得する。
func (s *Service) Get(ctx context.Context, clinicID, id string) (*model.Call, error) {
	call, err := s.repo.FindByID(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("通話記録の取得に失敗しました: %w", err)
	}
	if call == nil {
		return nil, model.NewCallNotFoundError(id)
	}
	return call, nil
}

// Create は通話記録を作成する。記録者は操作者になる。
func (s *Service) Create(ctx context.Context, clinicID, actorID string, in Input) (*model.Call, error) {
	in.Outcome = strings.TrimSpace(in.Outcome)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.patients.Exists(ctx, clinicID, in.PatientID); err != nil {
		return nil, err
	}

	now := s.now()
	calledAt := now
	if in.CalledAt != nil {
		calledAt = in.CalledAt.UTC()
	}

	call := &model.Call{
		ID:        uuid.NewString(),
		ClinicID:  clinicID,
		PatientID: in.PatientID,
		UserID:    actorID,
		CalledAt:  calledAt,
		Direction: in.Direction,
		Outcome:   in.Outcome,
		Notes:     s.sanitizer.Sanitize(in.Notes),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, call); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPatientNotFoundError(in.PatientID)
		}
		return nil, fmt.Errorf("通話記録の作成に失敗しました: %w", err)
	}

	slog.Info("通話記録を作成しました",
		slog.String("call_id", call.ID),
		slog.String("clinic_id", clinicID),
		slog.String("direction", string(call.Direction)),
	)
	return call, nil
}

// Delete は通話記録を削除する。
func (s *Service) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.repo.Delete(ctx, clinicID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCallNotFoundError(id)
		}
		return fmt.Errorf("通話記録の削除に失敗しました: %w", err)
	}
	return nil
}
