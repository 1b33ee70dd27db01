// Package billing は請求書とスタッフボーナスのドメインロジックを提供する。
// 金額はすべて最小通貨単位（cents）の整数で扱う。
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
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

var invoiceNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_/]*$`)

// PatientChecker は患者がクリニックに存在するかを確認する。
type PatientChecker interface {
	Exists(ctx context.Context, clinicID, id string) error
}

// InvoiceInput は請求書の作成・更新の入力。
// IssuedAtを省略した場合は現在時刻、Statusを省略した場合は draft になる。
type InvoiceInput struct {
	PatientID   string              `json:"patient_id"`
	Number      string              `json:"number"`
	IssuedAt    *time.Time          `json:"issued_at"`
	AmountCents int64               `json:"amount_cents"`
	Status      model.InvoiceStatus `json:"status"`
	Notes       string              `json:"notes"`
}

// Validate は入力値を検証する。
func (in *InvoiceInput) Validate() error {
	return validate.Struct(in,
		validation.Field(&in.PatientID, validation.Required, is.UUID),
		validation.Field(&in.Number, validation.Required, validation.Length(1, 64), validation.Match(invoiceNumberPattern)),
		validation.Field(&in.AmountCents, validation.Min(0)),
		validation.Field(&in.Status, validation.In(model.InvoiceDraft, model.InvoiceIssued, model.InvoicePaid, model.InvoiceVoid)),
		validation.Field(&in.Notes, validation.Length(0, 10000)),
	)
}

// InvoiceService は請求書のサービス層。
type InvoiceService struct {
	repo      repository.InvoiceRepository
	patients  PatientChecker
	sanitizer security.NotesSanitizerService
	now       func() time.Time
}

// NewInvoiceService はInvoiceServiceを生成する。
func NewInvoiceService(repo repository.InvoiceRepository, patients PatientChecker, sanitizer security.NotesSanitizerService) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		patients:  patients,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

func (s *InvoiceService) prepare(ctx context.Context, clinicID string, in *InvoiceInput) error {
	in.Number = strings.TrimSpace(in.Number)
	if in.Status == "" {
		in.Status = model.InvoiceDraft
	}
	if err := in.Validate(); err != nil {
		return err
	}
	return s.patients.Exists(ctx, clinicID, in.PatientID)
}

// List は条件に合致する請求書の一覧と総件数を返す。
func (s *InvoiceService) List(ctx context.Context, clinicID string, filter model.InvoiceFilter) ([]*model.Invoice, int, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, model.NewValidationError(map[string]string{"status": "不正な状態です"})
	}
	filter.Page = filter.Page.Normalize()

	invoices, total, err := s.repo.List(ctx, clinicID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("請求書一覧の取得に失敗しました: %w", err)
	}
	return invoices, total, nil
}

// Get は請求書を取得する。
func (s *InvoiceService) Get(ctx context.Context, clinicID, id string) (*model.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, clinicID, id)
	if err != nil {
		return nil, fmt.Errorf("請求書の取得に失敗しました: %w", err)
	}
	if inv == nil {
		return nil, model.NewInvoiceNotFoundError(id)
	}
	return inv, nil
}

// Create は請求書を作成する。番号はクリニック内で一意。
func (s *InvoiceService) Create(ctx context.Context, clinicID string, in InvoiceInput) (*model.Invoice, error) {
	if err := s.prepare(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	now := s.now()
	issuedAt := now
	if in.IssuedAt != nil {
		issuedAt = in.IssuedAt.UTC()
	}

	inv := &model.Invoice{
		ID:          uuid.NewString(),
		ClinicID:    clinicID,
		PatientID:   in.PatientID,
		Number:      in.Number,
		IssuedAt:    issuedAt,
		AmountCents: in.AmountCents,
		Status:      in.Status,
		Notes:       s.sanitizer.Sanitize(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewInvoiceNumberTakenError(in.Number)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewPatientNotFoundError(in.PatientID)
		}
		return nil, fmt.Errorf("請求書の作成に失敗しました: %w", err)
	}

	slog.Info("請求書を作成しました",
		slog.String("invoice_id", inv.ID),
		slog.String("clinic_id", clinicID),
		slog.String("number", inv.Number),
	)
	return inv, nil
}

// Update は請求書を更新する。
func (s *InvoiceService) Update(ctx context.Context, clinicID, id string, in InvoiceInput) (*model.Invoice, error) {
	inv, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = inv.Status
	}
	if err := s.prepare(ctx, clinicID, &in); err != nil {
		return nil, err
	}

	inv.PatientID = in.PatientID
	inv.Number = in.Number
	if in.IssuedAt != nil {
		inv.IssuedAt = in.IssuedAt.UTC()
	}
	inv.AmountCents = in.AmountCents
	inv.Status = in.Status
	inv.Notes = s.sanitizer.Sanitize(in.Notes)
	inv.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, inv); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewInvoiceNumberTakenError(in.Number)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewInvoiceNotFoundError(id)
		}
		return nil, fmt.Errorf("請求書の更新に失敗しました: %w", err)
	}
	return inv, nil
}

// Delete は下書きの請求書を削除する。下書き以外は INVOICE_NOT_DRAFT を返す。
func (s *InvoiceService) Delete(ctx context.Context, clinicID, id string) error {
	inv, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return err
	}
	if inv.Status != model.InvoiceDraft {
		return model.NewInvoiceNotDraftError()
	}

	if err := s.repo.DeleteDraft(ctx, clinicID, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.NewInvoiceNotDraftError()
		}
		return fmt.Errorf("請求書の削除に失敗しました: %w", err)
	}

	slog.Info("請求書を削除しました",
		slog.String("invoice_id", id),
		slog.String("clinic_id", clinicID),
	)
	return nil
}
