package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しない場合に返す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意制約に違反した場合に返す。
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict は条件付き更新の前提（状態など）が満たされなかった場合に返す。
	ErrConflict = errors.New("record state conflict")
)

// PostgreSQLのSQLSTATEコード
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation はerrが一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	return pqErrorCode(err) == pgUniqueViolation
}

// isForeignKeyViolation はerrが外部キー制約違反かどうかを返す。
func isForeignKeyViolation(err error) bool {
	return pqErrorCode(err) == pgForeignKeyViolation
}

func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
