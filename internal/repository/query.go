package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/clinicman/internal/model"
)

// whereClause は一覧取得用のWHERE句とプレースホルダ引数を組み立てる。
// 条件は常にAND結合する。
type whereClause struct {
	conds []string
	args  []interface{}
}

// add は条件を追加する。cond中の "?" はすべて同じプレースホルダ（argを参照）に置き換える。
func (w *whereClause) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

// addRaw は引数を持たない条件を追加する。
func (w *whereClause) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// paginate はLIMIT/OFFSET句を付与したクエリと引数を返す。
func (w *whereClause) paginate(query string, page model.Page) (string, []interface{}) {
	page = page.Normalize()
	args := append(append([]interface{}{}, w.args...), page.Limit, page.Offset)
	return fmt.Sprintf("%s LIMIT $%d OFFSET $%d", query, len(w.args)+1, len(w.args)+2), args
}

// count は条件に合致する行数を返す。
func (w *whereClause) count(ctx context.Context, db *sql.DB, table string) (int, error) {
	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// likePattern はILIKE用に特殊文字をエスケープした部分一致パターンを返す。
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// expectOneRow はUPDATE/DELETEの影響行数が0の場合にErrNotFoundを返す。
func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// nullTime はnilをSQLのNULLに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString は空文字列以外のポインタをSQLの値に変換する。
func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// conflictIfNoRows は条件付きUPDATE/DELETEの影響行数が0の場合にErrConflictを返す。
func conflictIfNoRows(result sql.Result) error {
	if err := expectOneRow(result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrConflict
		}
		return err
	}
	return nil
}
