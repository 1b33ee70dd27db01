package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

const bonusColumns = `id, clinic_id, user_id, period, amount_cents, reason, created_at, updated_at`

// PostgresBonusRepo はPostgreSQLを使用したボーナスリポジトリ。
type PostgresBonusRepo struct {
	db *sql.DB
}

// NewPostgresBonusRepo はPostgresBonusRepoを生成する。
func NewPostgresBonusRepo(db *sql.DB) *PostgresBonusRepo {
	return &PostgresBonusRepo{db: db}
}

func scanBonus(row rowScanner) (*model.Bonus, error) {
	b := &model.Bonus{}
	if err := row.Scan(&b.ID, &b.ClinicID, &b.UserID, &b.Period, &b.AmountCents,
		&b.Reason, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

// FindByID は指定IDのボーナスを取得する。見つからない場合はnilを返す。
func (r *PostgresBonusRepo) FindByID(ctx context.Context, clinicID, id string) (*model.Bonus, error) {
	b, err := scanBonus(r.db.QueryRowContext(ctx,
		`SELECT `+bonusColumns+` FROM bonuses WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ボーナスの取得に失敗しました: %w", err)
	}
	return b, nil
}

// List は条件に合致するボーナスを対象期間の降順で返す。
func (r *PostgresBonusRepo) List(ctx context.Context, clinicID string, filter model.BonusFilter) ([]*model.Bonus, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Period != "" {
		w.add("period = ?", filter.Period)
	}

	total, err := w.count(ctx, r.db, "bonuses")
	if err != nil {
		return nil, 0, fmt.Errorf("ボーナス数の取得に失敗しました: %w", err)
	}

	query, args := w.paginate(`SELECT `+bonusColumns+` FROM bonuses`+w.String()+` ORDER BY period DESC, created_at DESC, id ASC`, filter.Page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ボーナス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	bonuses := []*model.Bonus{}
	for rows.Next() {
		b, err := scanBonus(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ボーナス行の読み取りに失敗しました: %w", err)
		}
		bonuses = append(bonuses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ボーナス一覧の走査に失敗しました: %w", err)
	}
	return bonuses, total, nil
}

// Create はボーナスを作成する。
func (r *PostgresBonusRepo) Create(ctx context.Context, b *model.Bonus) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bonuses (id, clinic_id, user_id, period, amount_cents, reason, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.ClinicID, b.UserID, b.Period, b.AmountCents, b.Reason, b.CreatedAt, b.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("ボーナスの作成に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("ボーナスの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はボーナスを更新する。
func (r *PostgresBonusRepo) Update(ctx context.Context, b *model.Bonus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bonuses SET user_id = $3, period = $4, amount_cents = $5, reason = $6, updated_at = $7
		 WHERE clinic_id = $1 AND id = $2`,
		b.ClinicID, b.ID, b.UserID, b.Period, b.AmountCents, b.Reason, b.UpdatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("ボーナスの更新に失敗しました: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("ボーナスの更新に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// Delete はボーナスを削除する。
func (r *PostgresBonusRepo) Delete(ctx context.Context, clinicID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bonuses WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	)
	if err != nil {
		return fmt.Errorf("ボーナスの削除に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// compile-time interface check
var _ BonusRepository = (*PostgresBonusRepo)(nil)
