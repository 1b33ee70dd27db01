package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

const invoiceColumns = `id, clinic_id, patient_id, number, issued_at, amount_cents, status, notes, created_at, updated_at`

// PostgresInvoiceRepo はPostgreSQLを使用した請求書リポジトリ。
type PostgresInvoiceRepo struct {
	db *sql.DB
}

// NewPostgresInvoiceRepo はPostgresInvoiceRepoを生成する。
func NewPostgresInvoiceRepo(db *sql.DB) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{db: db}
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	inv := &model.Invoice{}
	var status string
	if err := row.Scan(&inv.ID, &inv.ClinicID, &inv.PatientID, &inv.Number, &inv.IssuedAt,
		&inv.AmountCents, &status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Status = model.InvoiceStatus(status)
	return inv, nil
}

// FindByID は指定IDの請求書を取得する。見つからない場合はnilを返す。
func (r *PostgresInvoiceRepo) FindByID(ctx context.Context, clinicID, id string) (*model.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("請求書の取得に失敗しました: %w", err)
	}
	return inv, nil
}

// List は条件に合致する請求書を発行日の降順で返す。
func (r *PostgresInvoiceRepo) List(ctx context.Context, clinicID string, filter model.InvoiceFilter) ([]*model.Invoice, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)
	if filter.PatientID != "" {
		w.add("patient_id = ?", filter.PatientID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	total, err := w.count(ctx, r.db, "invoices")
	if err != nil {
		return nil, 0, fmt.Errorf("請求書数の取得に失敗しました: %w", err)
	}

	query, args := w.paginate(`SELECT `+invoiceColumns+` FROM invoices`+w.String()+` ORDER BY issued_at DESC, id ASC`, filter.Page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("請求書一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	invoices := []*model.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("請求書行の読み取りに失敗しました: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("請求書一覧の走査に失敗しました: %w", err)
	}
	return invoices, total, nil
}

// Create は請求書を作成する。番号重複時はErrDuplicateを返す。
func (r *PostgresInvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invoices (id, clinic_id, patient_id, number, issued_at, amount_cents, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.ClinicID, inv.PatientID, inv.Number, inv.IssuedAt, inv.AmountCents,
		string(inv.Status), inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("請求書の作成に失敗しました: %w", ErrDuplicate)
	case isForeignKeyViolation(err):
		return fmt.Errorf("請求書の作成に失敗しました: %w", ErrNotFound)
	case err != nil:
		return fmt.Errorf("請求書の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は請求書を更新する。番号重複時はErrDuplicateを返す。
func (r *PostgresInvoiceRepo) Update(ctx context.Context, inv *model.Invoice) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET patient_id = $3, number = $4, issued_at = $5, amount_cents = $6,
		        status = $7, notes = $8, updated_at = $9
		 WHERE clinic_id = $1 AND id = $2`,
		inv.ClinicID, inv.ID, inv.PatientID, inv.Number, inv.IssuedAt, inv.AmountCents,
		string(inv.Status), inv.Notes, inv.UpdatedAt,
	)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("請求書の更新に失敗しました: %w", ErrDuplicate)
	case isForeignKeyViolation(err):
		return fmt.Errorf("請求書の更新に失敗しました: %w", ErrNotFound)
	case err != nil:
		return fmt.Errorf("請求書の更新に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// DeleteDraft は下書き状態の請求書のみ削除する。
func (r *PostgresInvoiceRepo) DeleteDraft(ctx context.Context, clinicID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invoices WHERE clinic_id = $1 AND id = $2 AND status = 'draft'`,
		clinicID, id,
	)
	if err != nil {
		return fmt.Errorf("請求書の削除に失敗しました: %w", err)
	}
	return conflictIfNoRows(result)
}

// compile-time interface check
var _ InvoiceRepository = (*PostgresInvoiceRepo)(nil)
