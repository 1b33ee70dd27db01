package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

const sessionColumns = `id, clinic_id, patient_id, therapist_id, scheduled_at, duration_minutes, status, price_cents, notes, created_at, updated_at`

// PostgresSessionRepo はPostgreSQLを使用した施術セッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func scanSession(row rowScanner) (*model.TreatmentSession, error) {
	s := &model.TreatmentSession{}
	var status string
	if err := row.Scan(&s.ID, &s.ClinicID, &s.PatientID, &s.TherapistID, &s.ScheduledAt,
		&s.DurationMinutes, &status, &s.PriceCents, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.SessionStatus(status)
	return s, nil
}

// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, clinicID, id string) (*model.TreatmentSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	return s, nil
}

// List は条件に合致するセッションを予約日時の昇順で返す。
// From/Toは scheduled_at の半開区間 [From, To) として扱う。
func (r *PostgresSessionRepo) List(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)
	if filter.PatientID != "" {
		w.add("patient_id = ?", filter.PatientID)
	}
	if filter.TherapistID != "" {
		w.add("therapist_id = ?", filter.TherapistID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.From != nil {
		w.add("scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("scheduled_at < ?", *filter.To)
	}

	total, err := w.count(ctx, r.db, "sessions")
	if err != nil {
		return nil, 0, fmt.Errorf("セッション数の取得に失敗しました: %w", err)
	}

	query, args := w.paginate(`SELECT `+sessionColumns+` FROM sessions`+w.String()+` ORDER BY scheduled_at ASC, id ASC`, filter.Page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("セッション一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	sessions := []*model.TreatmentSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("セッション行の読み取りに失敗しました: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("セッション一覧の走査に失敗しました: %w", err)
	}
	return sessions, total, nil
}

// Create はセッションを作成する。患者または担当者が存在しない場合はErrNotFoundを返す。
func (r *PostgresSessionRepo) Create(ctx context.Context, s *model.TreatmentSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, clinic_id, patient_id, therapist_id, scheduled_at, duration_minutes, status, price_cents, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.ClinicID, s.PatientID, s.TherapistID, s.ScheduledAt, s.DurationMinutes,
		string(s.Status), s.PriceCents, s.Notes, s.CreatedAt, s.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("セッションの作成に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("セッションの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はセッションの予約内容を更新する。状態は UpdateStatus で変更する。
func (r *PostgresSessionRepo) Update(ctx context.Context, s *model.TreatmentSession) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET patient_id = $3, therapist_id = $4, scheduled_at = $5, duration_minutes = $6,
		        price_cents = $7, notes = $8, updated_at = $9
		 WHERE clinic_id = $1 AND id = $2`,
		s.ClinicID, s.ID, s.PatientID, s.TherapistID, s.ScheduledAt, s.DurationMinutes,
		s.PriceCents, s.Notes, s.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("セッションの更新に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("セッションの更新に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// UpdateStatus は現在の状態がfromの場合のみtoへ変更する。
func (r *PostgresSessionRepo) UpdateStatus(ctx context.Context, clinicID, id string, from, to model.SessionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = $4, updated_at = now()
		 WHERE clinic_id = $1 AND id = $2 AND status = $3`,
		clinicID, id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("セッション状態の更新に失敗しました: %w", err)
	}
	return conflictIfNoRows(result)
}

// Delete はセッションを削除する。紐づくリマインダーの session_id はNULLになる。
func (r *PostgresSessionRepo) Delete(ctx context.Context, clinicID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	)
	if err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
