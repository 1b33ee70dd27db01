// Package validate は ozzo-validation の検証結果を API エラーに変換する。
package validate

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/hitoshi/clinicman/internal/model"
)

// Struct は構造体のフィールドを検証し、失敗時は VALIDATION_FAILED の APIError を返す。
// フィールド名には json タグの名前が使われる。
func Struct(structPtr interface{}, fields ...*validation.FieldRules) error {
	return Translate(validation.ValidateStruct(structPtr, fields...))
}

// Translate は validation.Errors を *model.APIError に変換する。
// それ以外のエラー（ルール定義の誤りなど）はそのまま返す。
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for name, ferr := range verrs {
		if ferr == nil {
			continue
		}
		fields[name] = ferr.Error()
	}
	if len(fields) == 0 {
		return nil
	}
	return model.NewValidationError(fields)
}

// FieldNames は検証エラーのフィールド名をソートして返す。ログ出力用。
func FieldNames(err error) []string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Fields == nil {
		return nil
	}
	names := make([]string, 0, len(apiErr.Fields))
	for name := range apiErr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
