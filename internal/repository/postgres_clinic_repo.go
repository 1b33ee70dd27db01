package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

// PostgresClinicRepo はPostgreSQLを使用したクリニックリポジトリ。
type PostgresClinicRepo struct {
	db *sql.DB
}

// NewPostgresClinicRepo はPostgresClinicRepoを生成する。
func NewPostgresClinicRepo(db *sql.DB) *PostgresClinicRepo {
	return &PostgresClinicRepo{db: db}
}

// FindByID は指定IDのクリニックを取得する。見つからない場合はnilを返す。
func (r *PostgresClinicRepo) FindByID(ctx context.Context, id string) (*model.Clinic, error) {
	clinic := &model.Clinic{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, address, phone, created_at, updated_at FROM clinics WHERE id = $1`,
		id,
	).Scan(&clinic.ID, &clinic.Name, &clinic.Address, &clinic.Phone, &clinic.CreatedAt, &clinic.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("クリニックの取得に失敗しました: %w", err)
	}
	return clinic, nil
}

// Update はクリニックの名称・住所・電話番号を更新する。
func (r *PostgresClinicRepo) Update(ctx context.Context, clinic *model.Clinic) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE clinics SET name = $2, address = $3, phone = $4, updated_at = $5 WHERE id = $1`,
		clinic.ID, clinic.Name, clinic.Address, clinic.Phone, clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("クリニックの更新に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// CreateWithAdmin はクリニックと管理者ユーザーを同一トランザクションで作成する。
func (r *PostgresClinicRepo) CreateWithAdmin(ctx context.Context, clinic *model.Clinic, admin *model.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO clinics (id, name, address, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		clinic.ID, clinic.Name, clinic.Address, clinic.Phone, clinic.CreatedAt, clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("クリニックの作成に失敗しました: %w", err)
	}

	if err := insertUser(ctx, tx, admin); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ClinicRepository = (*PostgresClinicRepo)(nil)
