package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

// 各Postgresリポジトリがインターフェースを満たすことを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ ClinicRepository = (*PostgresClinicRepo)(nil)
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ PatientRepository = (*PostgresPatientRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ InvoiceRepository = (*PostgresInvoiceRepo)(nil)
	var _ BonusRepository = (*PostgresBonusRepo)(nil)
	var _ ReminderRepository = (*PostgresReminderRepo)(nil)
	var _ CallRepository = (*PostgresCallRepo)(nil)
}

// コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	repos := map[string]interface{}{
		"clinic":   NewPostgresClinicRepo(nil),
		"user":     NewPostgresUserRepo(nil),
		"patient":  NewPostgresPatientRepo(nil),
		"session":  NewPostgresSessionRepo(nil),
		"invoice":  NewPostgresInvoiceRepo(nil),
		"bonus":    NewPostgresBonusRepo(nil),
		"reminder": NewPostgresReminderRepo(nil),
		"call":     NewPostgresCallRepo(nil),
	}
	for name, repo := range repos {
		if repo == nil {
			t.Errorf("%s: expected non-nil repo", name)
		}
	}
}

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, r.err }

func TestExpectOneRow(t *testing.T) {
	if err := expectOneRow(fakeResult{rowsAffected: 1}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := expectOneRow(fakeResult{rowsAffected: 0}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	driverErr := errors.New("driver failure")
	if err := expectOneRow(fakeResult{err: driverErr}); !errors.Is(err, driverErr) {
		t.Errorf("expected wrapped driver error, got %v", err)
	}
}

func TestConflictIfNoRows(t *testing.T) {
	if err := conflictIfNoRows(fakeResult{rowsAffected: 1}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := conflictIfNoRows(fakeResult{rowsAffected: 0}); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pq.Error{Code: "23503"}

	if !isUniqueViolation(unique) {
		t.Error("23505 should be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", unique)) {
		t.Error("wrapped 23505 should be a unique violation")
	}
	if isUniqueViolation(fk) {
		t.Error("23503 should not be a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Error("nil should not be a unique violation")
	}
	if !isForeignKeyViolation(fk) {
		t.Error("23503 should be a foreign key violation")
	}
	if isForeignKeyViolation(errors.New("plain")) {
		t.Error("plain error should not be a foreign key violation")
	}
}

func TestNullHelpers(t *testing.T) {
	if nullTime(nil).Valid {
		t.Error("nullTime(nil) should be invalid")
	}
	empty := ""
	if nullString(&empty).Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	id := "s-1"
	if got := nullString(&id); !got.Valid || got.String != "s-1" {
		t.Errorf("nullString(&id) = %+v", got)
	}
}
