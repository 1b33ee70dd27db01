// Package reminder は患者への連絡予定（リマインダー）のドメインロジックを提供する。
// 送信そのものは行わず、送信済み・取り消しの状態管理のみを扱う。
package reminder

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
	"github.com/hitoshi/clinicman/internal/validate"
)

const maxMessageLength = 1000

// PatientChecker は患者がクリニックに存在するかを確認する。
type PatientChecker interface {
	Exists(ctx context.Context, clinicID, id string) error
}

// SessionChecker は施術セッションがクリニックに存在するかを確認する。
type SessionChecker interface {
	Exists(ctx context.Context, clinicID, id string) error
}

// Input はリマインダーの作成・更新の入力。
type Input struct {
	PatientID string                `json:"patient_id"`
	SessionID *string               `json:"session_id"`
	Channel   model.ReminderChannel `json:"channel"`
	RemindAt  time.Time             `json:"remind_at"`
	Message   string                `json:"message"`
}

// Validate は入力値を検証する。
func (in *Input) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.PatientID, validation.Required, is.UUID),
		validation.Field(&in.SessionID, is.UUID),
		validation.Field(&in.Channel, validation.Required, validation.In(
			model.ChannelWhatsApp, model.ChannelSMS, model.ChannelCall,
		)),
		validation.Field(&in.RemindAt, validation.Required),
		validation.Field(&in.Message, validation.Required, validation.Length(1, maxMessageLength)),
	)
}

// Service はリマインダーのサービス層。
type Service struct {
	repo     repository.ReminderRepository
	patients PatientChecker
	sessions SessionChecker
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.ReminderRepository, patients PatientChecker, sessions SessionChecker) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *Service) prepare(ctx context.Context, clinicID string, in *Input) error {
	in.Message = strings.TrimSpace(in.Message)
	if in.SessionID != nil && strings.TrimSpace(*in.SessionID) == "" {
		in.SessionID = nil
	}
	if err := in.Validate(); err != nil {
		return err
	}

	if err := s.patients.Exists(ctx, clinicID, in.PatientID); err != nil {
		return err
	}
	if in.SessionID != nil {
		if err := s.sessions.Exists(ctx, clinicID, *in.SessionID); err != nil {
			return err
		}
	}
	return nil
}

// List は条件に合致するリマインダーの一覧と総件数を返す。
func (s *Service) List(ctx context.Context, clinicID string, filter model.ReminderFilter) ([]*model.Reminder, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, model.NewValidationError(map[string]string{"status": "不正な状態です"})
	}
	filter.Page = filter.Page.Normalize()

	reminders, total, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	return reminders, total, nil
}

// Get はリマインダーを取得する。
func (s *Service) Get(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	r, err := s.repo.FindByID(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}
	if r == nil {
		return nil, model.NewReminderNotFoundError(id)
	}
	return r, nil
}

// Create は未送信状態のリマインダーを作成する。
func (s *Service) Create(ctx context.Context, clinicID string, in Input) (*model.Reminder, error) {
	if err := s.prepare(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	now := s.now()
	r := &model.Reminder{
		ID:        uuid.NewString(),
		ClinicID:  clinicID,
		PatientID: in.PatientID,
		SessionID: in.SessionID,
		Channel:   in.Channel,
		RemindAt:  in.RemindAt.UTC(),
		Message:   in.Message,
		Status:    model.ReminderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPatientNotFoundError(in.PatientID)
		}
		return nil, fmt.Errorf("リマインダーの作成に失敗しました: %w", err)
	}

	slog.Info("リマインダーを作成しました",
		slog.String("reminder_id", r.ID),
		slog.String("clinic_id", clinicID),
		slog.String("channel", string(r.Channel)),
	)
	return r, nil
}

// Update は未送信のリマインダーを更新する。
func (s *Service) Update(ctx context.Context, clinicID, id string, in Input) (*model.Reminder, error) {
	r, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.ReminderPending {
		return nil, model.NewReminderNotPendingError()
	}
	if err := s.prepare(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	r.PatientID = in.PatientID
	r.SessionID = in.SessionID
	r.Channel = in.Channel
	r.RemindAt = in.RemindAt.UTC()
	r.Message = in.Message
	r.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, r); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewReminderNotPendingError()
		}
		return nil, fmt.Errorf("リマインダーの更新に失敗しました: %w", err)
	}
	return r, nil
}

// MarkSent は未送信のリマインダーを送信済みにし、送信日時を記録する。
func (s *Service) MarkSent(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	r, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.ReminderPending {
		return nil, model.NewReminderNotPendingError()
	}

	sentAt := s.now()
	if err := s.repo.MarkSent(ctx, clinicID, id, sentAt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewReminderNotPendingError()
		}
		return nil, fmt.Errorf("リマインダーの送信済み更新に失敗しました: %w", err)
	}

	r.Status = model.ReminderSent
	r.SentAt = &sentAt
	r.UpdatedAt = sentAt
	return r, nil
}

// Cancel は未送信のリマインダーを取り消す。
func (s *Service) Cancel(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	r, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.ReminderPending {
		return nil, model.NewReminderNotPendingError()
	}

	if err := s.repo.Cancel(ctx, clinicID, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewReminderNotPendingError()
		}
		return nil, fmt.Errorf("リマインダーの取り消しに失敗しました: %w", err)
	}

	slog.Info("リマインダーを取り消しました",
		slog.String("reminder_id", id),
		slog.String("clinic_id", clinicID),
	)

	r.Status = model.ReminderCancelled
	r.UpdatedAt = s.now()
	return r, nil
}

// Delete はリマインダーを削除する。
func (s *Service) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.repo.Delete(ctx, clinicID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewReminderNotFoundError(id)
		}
		return fmt.Errorf("リマインダーの削除に失敗しました: %w", err)
	}
	return nil
}
