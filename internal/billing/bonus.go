package billing

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

// periodLayout はボーナス対象期間（年月）の形式。
const periodLayout = "2006-01"

// StaffFinder はクリニック内のユーザーを取得する。
type StaffFinder interface {
	FindInClinic(ctx context.Context, clinicID, id string) (*model.User, error)
}

// BonusInput はボーナスの作成・更新の入力。
type BonusInput struct {
	UserID      string `json:"user_id"`
	Period      string `json:"period"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

// Validate は入力値を検証する。
func (in *BonusInput) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.UserID, validation.Required, is.UUID),
		validation.Field(&in.Period, validation.Required, validation.Date(periodLayout)),
		validation.Field(&in.AmountCents, validation.Required, validation.Min(1)),
		validation.Field(&in.Reason, validation.Length(0, 500)),
	)
}

// BonusService はスタッフボーナスのサービス層。
type BonusService struct {
	repo  repository.BonusRepository
	staff StaffFinder
	now   func() time.Time
}

// NewBonusService はBonusServiceを生成する。
func NewBonusService(repo repository.BonusRepository, staff StaffFinder) *BonusService {
	return &BonusService{repo: repo, staff: staff, now: time.Now}
}

func (s *BonusService) prepare(ctx context.Context, clinicID string, in *BonusInput) error {
	in.Period = strings.TrimSpace(in.Period)
	in.Reason = strings.TrimSpace(in.Reason)
	if err := in.Validate(); err != nil {
		return err
	}

	u, err := s.staff.FindInClinic(ctx, clinicID, in.UserID)
	if err != nil {
		return fmt.Errorf("対象スタッフの取得に失敗しました: %w", err)
	}
	if u == nil {
		return model.NewValidationError(map[string]string{"user_id": "対象スタッフが見つかりません"})
	}
	return nil
}

// List は条件に合致するボーナスの一覧と総件数を返す。
func (s *BonusService) List(ctx context.Context, clinicID string, filter model.BonusFilter) ([]*model.Bonus, int, error) {
	if filter.Period != "" {
		if _, err := time.Parse(periodLayout, filter.Period); err != nil {
			return nil, 0, model.NewValidationError(map[string]string{"period": "YYYY-MM形式で指定してください"})
		}
	}
	filter.Page = filter.Page.Normalize()

	bonuses, total, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("ボーナス一覧の取得に失敗しました: %w", err)
	}
	return bonuses, total, nil
}

// Get はボーナスを取得する。
func (s *BonusService) Get(ctx context.Context, clinicID, id string) (*model.Bonus, error) {
	b, err := s.repo.FindByID(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("ボーナスの取得に失敗しました: %w", err)
	}
	if b == nil {
		return nil, model.NewBonusNotFoundError(id)
	}
	return b, nil
}

// Create はボーナスを登録する。
func (s *BonusService) Create(ctx context.Context, clinicID string, in BonusInput) (*model.Bonus, error) {
	if err := s.prepare(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	now := s.now()
	b := &model.Bonus{
		ID:          uuid.NewString(),
		ClinicID:    clinicID,
		UserID:      in.UserID,
		Period:      in.Period,
		AmountCents: in.AmountCents,
		Reason:      in.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("ボーナスの登録に失敗しました: %w", err)
	}

	slog.Info("ボーナスを登録しました",
		slog.String("bonus_id", b.ID),
		slog.String("clinic_id", clinicID),
		slog.String("period", b.Period),
	)
	return b, nil
}

// Update はボーナスを更新する。
func (s *BonusService) Update(ctx context.Context, clinicID, id string, in BonusInput) (*model.Bonus, error) {
	b, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	b.UserID = in.UserID
	b.Period = in.Period
	b.AmountCents = in.AmountCents
	b.Reason = in.Reason
	b.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, b); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewBonusNotFoundError(id)
		}
		return nil, fmt.Errorf("ボーナスの更新に失敗しました: %w", err)
	}
	return b, nil
}

// Delete はボーナスを削除する。
func (s *BonusService) Delete(ctx context.Context, clinicID, id string) error {
	if err := s.repo.Delete(ctx, clinicID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewBonusNotFoundError(id)
		}
		return fmt.Errorf("ボーナスの削除に失敗しました: %w", err)
	}
	return nil
}
