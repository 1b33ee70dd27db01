package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clinicman/internal/model"
)

const patientColumns = `id, clinic_id, name, phone, email, birth_date, notes, active, created_at, updated_at`

// PostgresPatientRepo はPostgreSQLを使用した患者リポジトリ。
type PostgresPatientRepo struct {
	db *sql.DB
}

// NewPostgresPatientRepo はPostgresPatientRepoを生成する。
func NewPostgresPatientRepo(db *sql.DB) *PostgresPatientRepo {
	return &PostgresPatientRepo{db: db}
}

func scanPatient(row rowScanner) (*model.Patient, error) {
	p := &model.Patient{}
	var birthDate sql.NullTime
	if err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Phone, &p.Email, &birthDate,
		&p.Notes, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if birthDate.Valid {
		t := birthDate.Time
		p.BirthDate = &t
	}
	return p, nil
}

// FindByID は指定IDの患者を取得する。見つからない場合はnilを返す。
func (r *PostgresPatientRepo) FindByID(ctx context.Context, clinicID, id string) (*model.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE clinic_id = $1 AND id = $2`,
		clinicID, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("患者の取得に失敗しました: %w", err)
	}
	return p, nil
}

// List は条件に合致する患者を氏名順で返す。
// Queryは氏名・電話番号の部分一致（大文字小文字を区別しない）。
func (r *PostgresPatientRepo) List(ctx context.Context, clinicID string, filter model.PatientFilter) ([]*model.Patient, int, error) {
	var w whereClause
	w.add("clinic_id = ?", clinicID)
	if filter.Query != "" {
		w.add("(name ILIKE ? OR phone ILIKE ?)", likePattern(filter.Query))
	}
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}

	total, err := w.count(ctx, r.db, "patients")
	if err != nil {
		return nil, 0, fmt.Errorf("患者数の取得に失敗しました: %w", err)
	}

	query, args := w.paginate(`SELECT `+patientColumns+` FROM patients`+w.String()+` ORDER BY name ASC, id ASC`, filter.Page)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("患者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	patients := []*model.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("患者行の読み取りに失敗しました: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("患者一覧の走査に失敗しました: %w", err)
	}
	return patients, total, nil
}

// Create は患者を作成する。
func (r *PostgresPatientRepo) Create(ctx context.Context, p *model.Patient) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO patients (id, clinic_id, name, phone, email, birth_date, notes, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ClinicID, p.Name, p.Phone, p.Email, nullTime(p.BirthDate), p.Notes, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("患者の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は患者情報を更新する。
func (r *PostgresPatientRepo) Update(ctx context.Context, p *model.Patient) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE patients SET name = $3, phone = $4, email = $5, birth_date = $6, notes = $7, active = $8, updated_at = $9
		 WHERE clinic_id = $1 AND id = $2`,
		p.ClinicID, p.ID, p.Name, p.Phone, p.Email, nullTime(p.BirthDate), p.Notes, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("患者の更新に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// SetActive は患者の有効/無効を切り替える。
func (r *PostgresPatientRepo) SetActive(ctx context.Context, clinicID, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE patients SET active = $3, updated_at = now() WHERE clinic_id = $1 AND id = $2`,
		clinicID, id, active,
	)
	if err != nil {
		return fmt.Errorf("患者の有効状態の更新に失敗しました: %w", err)
	}
	return expectOneRow(result)
}

// compile-time interface check
var _ PatientRepository = (*PostgresPatientRepo)(nil)
