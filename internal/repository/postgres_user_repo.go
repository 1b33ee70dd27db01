package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

const userColumns = `id, clinic_id, email, name, password_hash, role, active, created_at, updated_at`

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var role string
	if err := row.Scan(&user.ID, &user.ClinicID, &user.Email, &user.Name, &user.PasswordHash,
		&role, &user.Active, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindInClinic はクリニック内の指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindInClinic(ctx context.Context, clinicID, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user in clinic: %w", err)
	}
	return user, nil
}

// ListByClinic はクリニックのユーザー一覧を氏名順で返す。
func (r *PostgresUserRepo) ListByClinic(ctx context.Context, clinicID string, page model.Page) ([]*model.User, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)

	total, err := w.count(ctx, r.db, "users")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query, args := w.paginate(`SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY name ASC, id ASC`, page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, total, nil
}

// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	return insertUser(ctx, r.db, user)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, user *model.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, clinic_id, email, name, password_hash, role, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.ClinicID, user.Email, user.Name, user.PasswordHash,
		string(user.Role), user.Active, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to insert user: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update は氏名と権限を更新する。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $3, role = $4, updated_at = $5
		 WHERE clinic_id = $1 AND id = $2`,
		user.ClinicID, user.ID, user.Name, string(user.Role), user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOneRow(result)
}

// SetActive は有効/無効を切り替える。
func (r *PostgresUserRepo) SetActive(ctx context.Context, clinicID, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = $3, updated_at = now() WHERE clinic_id = $1 AND id = $2`,
		clinicID, id, active,
	)
	if err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}
	return expectOneRow(result)
}

// UpdatePassword はパスワードハッシュを更新する。
func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(result)
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
