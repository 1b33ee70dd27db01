package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

const callColumns = `id, clinic_id, patient_id, user_id, called_at, direction, outcome, notes, created_at`

// PostgresCallRepo はPostgreSQLを使用した通話記録リポジトリ。
type PostgresCallRepo struct {
	db *sql.DB
}

// NewPostgresCallRepo はPostgresCallRepoを生成する。
func NewPostgresCallRepo(db *sql.DB) *PostgresCallRepo {
	return &PostgresCallRepo{db: db}
}

func scanCall(row rowScanner) (*model.Call, error) {
	c := &model.Call{}
	var direction string
	if err := row.Scan(&c.ID, &c.ClinicID, &c.PatientID, &c.UserID, &c.CalledAt,
		&direction, &c.Outcome, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Direction = model.CallDirection(direction)
	return c, nil
}

// FindByID は指定IDの通話記録を取得する。見つからない場合はnilを返す。
func (r *PostgresCallRepo) FindByID(ctx context.Context, clinicID, id string) (*model.Call, error) {
	c, err := scanCall(r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("通話記録の取得に失敗しました: %w", err)
	}
	return c, nil
}

// List は通話記録を通話日時の降順で返す。
func (r *PostgresCallRepo) List(ctx context.Context, clinicID string, filter model.CallFilter) ([]*model.Call, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)
	if filter.PatientID != "" {
		w.add("patient_id = ?", filter.PatientID)
	}

	total, err := w.count(ctx, r.db, "calls")
	if err != nil {
		return nil, 0, fmt.Errorf("通話記録数の取得に失敗しました: %w", err)
	}

	query, args := w.paginate(`SELECT `+callColumns+` FROM calls`+w.String()+` ORDER BY called_at DESC, id ASC`, filter.Page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("通話記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	calls := []*model.Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("通話記録行の読み取りに失敗しました: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("通話記録一覧の走査に失敗しました: %w", err)
	}
	return calls, total, nil
}

// Create は通話記録を作成する。
func (r *PostgresCallRepo) Create(ctx context.Context, c *model.Call) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calls (id, clinic_id, patient_id, user_id, called_at, direction, outcome, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.ClinicID, c.PatientID, c.UserID, c.CalledAt, string(c.Direction), c.Outcome, c.Notes, c.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("通話記録の作成に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("通話記録の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は通話記録を削除する。
func (r *PostgresCallRepo) Delete(ctx context.Context, clinicID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM calls WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	)
	if err != nil {
		return fmt.Errorf("通話記録の削除に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// compile-time interface check
var _ CallRepository = (*PostgresCallRepo)(nil)
