// Package treatment は施術セッション（予約と実施記録）のドメインロジックを提供する。
package treatment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/repository"
	"github.com/hitoshi/clinicman/internal/security"
	"github.com/hitoshi/clinicman/internal/validate"
)

const (
	defaultDurationMinutes = 60
	maxDurationMinutes     = 8 * 60
)

// PatientChecker は患者がクリニックに存在するかを確認する。
type PatientChecker interface {
	Exists(ctx context.Context, clinicID, id string) error
}

// TherapistFinder はクリニック内のユーザーを取得する。
type TherapistFinder interface {
	FindInClinic(ctx context.Context, clinicID, id string) (*model.User, error)
}

// Input は施術セッションの作成・更新の入力。
// TherapistIDを省略した場合は操作者が担当者になる。
type Input struct {
	PatientID       string    `json:"patient_id"`
	TherapistID     string    `json:"therapist_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Notes           string    `json:"notes"`
}

// Validate は入力値を検証する。
func (in *Input) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.PatientID, validation.Required, is.UUID),
		validation.Field(&in.TherapistID, validation.Required, is.UUID),
		validation.Field(&in.ScheduledAt, validation.Required),
		validation.Field(&in.DurationMinutes, validation.Required, validation.Min(5), validation.Max(maxDurationMinutes)),
		validation.Field(&in.PriceCents, validation.Min(0)),
		validation.Field(&in.Notes, validation.Length(0, 10000)),
	)
}

// StatusInput は状態変更の入力。
type StatusInput struct {
	Status model.SessionStatus `json:"status"`
}

// Validate は入力値を検証する。
func (in *StatusInput) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.Status, validation.Required, validation.In(
			model.SessionScheduled, model.SessionCompleted, model.SessionCancelled, model.SessionNoShow,
		)),
	)
}

// Service は施術セッションのサービス層。
type Service struct {
	repo       repository.SessionRepository
	patients   PatientChecker
	therapists TherapistFinder
	sanitizer  security.NotesSanitizerService
	now        func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	repo repository.SessionRepository,
	patients PatientChecker,
	therapists TherapistFinder,
	sanitizer security.NotesSanitizerService,
) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		therapists: therapists,
		sanitizer:  sanitizer,
		now:        time.Now,
	}
}

// prepare は入力を補完・検証し、参照先の存在を確認する。
func (s *Service) prepare(ctx context.Context, clinicID, actorID string, in *Input) error {
	if in.TherapistID == "" {
		in.TherapistID = actorID
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = defaultDurationMinutes
	}
	if err := in.Validate(); err != nil {
		return err
	}

	if err := s.patients.Exists(ctx, clinicID, in.PatientID); err != nil {
		return err
	}

	therapist, err := s.therapists.FindInClinic(ctx, clinicID, in.TherapistID)
	if err != nil {
		return fmt.Errorf("担当者の取得に失敗しました: %w", err)
	}
	if therapist == nil || !therapist.Active {
		return model.NewValidationError(map[string]string{"therapist_id": "担当者が見つかりません"})
	}
	return nil
}

// List は条件に合致するセッションの一覧と総件数を返す。
func (s *Service) List(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, model.NewValidationError(map[string]string{"status": "不正な状態です"})
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, 0, model.NewValidationError(map[string]string{"to": "終了日時は開始日時より後にしてください"})
	}
	filter.Page = filter.Page.Normalize()

	sessions, total, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	return sessions, total, nil
}

// Get はセッションを取得する。
func (s *Service) Get(ctx context.Context, clinicID, id string) (*model.TreatmentSession, error) {
	session, err := s.repo.FindByID(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	if session == nil {
		return nil, model.NewSessionNotFoundError(id)
	}
	return session, nil
}

// Create は予約状態のセッションを作成する。
func (s *Service) Create(ctx context.Context, clinicID, actorID string, in Input) (*model.TreatmentSession, error) {
	if err := s.prepare(ctx, clinicID, actorID, &in); err != nil {
		return nil, err
	}

	now := s.now()
	session := &model.TreatmentSession{
		ID:              uuid.NewString(),
		ClinicID:        clinicID,
		PatientID:       in.PatientID,
		TherapistID:     in.TherapistID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		DurationMinutes: in.DurationMinutes,
		Status:          model.SessionScheduled,
		PriceCents:      in.PriceCents,
		Notes:           s.sanitizer.Sanitize(in.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPatientNotFoundError(in.PatientID)
		}
		return nil, fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}

	slog.Info("施術セッションを作成しました",
		slog.String("session_id", session.ID),
		slog.String("clinic_id", clinicID),
		slog.String("patient_id", session.PatientID),
	)
	return session, nil
}

// Update はセッションの予約内容を更新する。状態は変更しない。
func (s *Service) Update(ctx context.Context, clinicID, actorID, id string, in Input) (*model.TreatmentSession, error) {
	session, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if in.TherapistID == "" {
		in.TherapistID = session.TherapistID
	}
	if err := s.prepare(ctx, clinicID, actorID, &in); err != nil {
		return nil, err
	}

	session.PatientID = in.PatientID
	session.TherapistID = in.TherapistID
	session.ScheduledAt = in.ScheduledAt.UTC()
	session.DurationMinutes = in.DurationMinutes
	session.PriceCents = in.PriceCents
	session.Notes = s.sanitizer.Sanitize(in.Notes)
	session.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewSessionNotFoundError(id)
		}
		return nil, fmt.Errorf("セッションの更新に失敗しました: %w", err)
	}
	return session, nil
}

// ChangeStatus はセッションの状態を変更する。
// 予約済み(scheduled)から completed / cancelled / no_show への遷移のみ許可する。
func (s *Service) ChangeStatus(ctx context.Context, clinicID, id string, in StatusInput) (*model.TreatmentSession, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	session, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransitionTo(in.Status) {
		return nil, model.NewInvalidStatusTransitionError(string(session.Status), string(in.Status))
	}

	if err := s.repo.UpdateStatus(ctx, clinicID, id, session.Status, in.Status); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// 取得後に他のリクエストが状態を変更した
			return nil, model.NewInvalidStatusTransitionError(string(session.Status), string(in.Status))
		}
		return nil, fmt.Errorf("セッション状態の更新に失敗しました: %w", err)
	}

	slog.Info("施術セッションの状態を変更しました",
		slog.String("session_id", id),
		slog.String("from", string(session.Status)),
		slog.String("to", string(in.Status)),
	)

	session.Status = in.Status
	session.UpdatedAt = s.now()
	return session, nil
}

// Delete はセッションを削除する。
func (s *Service) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.repo.Delete(ctx, clinicID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSessionNotFoundError(id)
		}
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// Exists はセッションがクリニックに存在するかを確認する。
func (s *Service) Exists(ctx context.Context, clinicID, id string) error {
	_, err := s.Get(ctx, clinicID, id)
	return err
}
