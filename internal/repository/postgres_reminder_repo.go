package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/clinicman/internal/model"
)

const reminderColumns = `id, clinic_id, patient_id, session_id, channel, remind_at, message, status, sent_at, created_at, updated_at`

// PostgresReminderRepo はPostgreSQLを使用したリマインダーリポジトリ。
type PostgresReminderRepo struct {
	db *sql.DB
}

// NewPostgresReminderRepo はPostgresReminderRepoを生成する。
func NewPostgresReminderRepo(db *sql.DB) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

func scanReminder(row rowScanner) (*model.Reminder, error) {
	rem := &model.Reminder{}
	var (
		sessionID       sql.NullString
		channel, status string
		sentAt          sql.NullTime
	)
	if err := row.Scan(&rem.ID, &rem.ClinicID, &rem.PatientID, &sessionID, &channel, &rem.RemindAt,
		&rem.Message, &status, &sentAt, &rem.CreatedAt, &rem.UpdatedAt); err != nil {
		return nil, err
	}
	rem.Channel = model.ReminderChannel(channel)
	rem.Status = model.ReminderStatus(status)
	if sessionID.Valid {
		s := sessionID.String
		rem.SessionID = &s
	}
	if sentAt.Valid {
		t := sentAt.Time
		rem.SentAt = &t
	}
	return rem, nil
}

// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
func (r *PostgresReminderRepo) FindByID(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	rem, err := scanReminder(r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}
	return rem, nil
}

// List は条件に合致するリマインダーを送信予定日時の昇順で返す。
func (r *PostgresReminderRepo) List(ctx context.Context, clinicID string, filter model.ReminderFilter) ([]*model.Reminder, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)
	if filter.PatientID != "" {
		w.add("patient_id = ?", filter.PatientID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.DueBefore != nil {
		w.add("remind_at <= ?", *filter.DueBefore)
	}

	total, err := w.count(ctx, r.db, "reminders")
	if err != nil {
		return nil, 0, fmt.Errorf("リマインダー数の取得に失敗しました: %w", err)
	}

	query, args := w.paginate(`SELECT `+reminderColumns+` FROM reminders`+w.String()+` ORDER BY remind_at ASC, id ASC`, filter.Page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	reminders := []*model.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("リマインダー行の読み取りに失敗しました: %w", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("リマインダー一覧の走査に失敗しました: %w", err)
	}
	return reminders, total, nil
}

// Create はリマインダーを作成する。
func (r *PostgresReminderRepo) Create(ctx context.Context, rem *model.Reminder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (id, clinic_id, patient_id, session_id, channel, remind_at, message, status, sent_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rem.ID, rem.ClinicID, rem.PatientID, nullString(rem.SessionID), string(rem.Channel), rem.RemindAt,
		rem.Message, string(rem.Status), nullTime(rem.SentAt), rem.CreatedAt, rem.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("リマインダーの作成に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("リマインダーの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は未送信リマインダーの内容を更新する。未送信でない場合はErrConflictを返す。
func (r *PostgresReminderRepo) Update(ctx context.Context, rem *model.Reminder) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET patient_id = $3, session_id = $4, channel = $5, remind_at = $6, message = $7, updated_at = $8
		 WHERE clinic_id = $1 AND id = $2 AND status = 'pending'`,
		rem.ClinicID, rem.ID, rem.PatientID, nullString(rem.SessionID), string(rem.Channel),
		rem.RemindAt, rem.Message, rem.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("リマインダーの更新に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("リマインダーの更新に失敗しました: %w", err)
	}
	return conflictIfNoRows(result)
}

// MarkSent は未送信のリマインダーを送信済みにする。
func (r *PostgresReminderRepo) MarkSent(ctx context.Context, clinicID, id string, sentAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET status = 'sent', sent_at = $3, updated_at = now()
		 WHERE clinic_id = $1 AND id = $2 AND status = 'pending'`,
		clinicID, id, sentAt,
	)
	if err != nil {
		return fmt.Errorf("リマインダーの送信済み更新に失敗しました: %w", err)
	}
	return conflictIfNoRows(result)
}

// Cancel は未送信のリマインダーを取り消す。
func (r *PostgresReminderRepo) Cancel(ctx context.Context, clinicID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET status = 'cancelled', updated_at = now()
		 WHERE clinic_id = $1 AND id = $2 AND status = 'pending'`,
		clinicID, id,
	)
	if err != nil {
		return fmt.Errorf("リマインダーの取り消しに失敗しました: %w", err)
	}
	return conflictIfNoRows(result)
}

// Delete はリマインダーを削除する。
func (r *PostgresReminderRepo) Delete(ctx context.Context, clinicID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	)
	if err != nil {
		return fmt.Errorf("リマインダーの削除に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// compile-time interface check
var _ ReminderRepository = (*PostgresReminderRepo)(nil)
