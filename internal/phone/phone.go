// Package phone は電話番号の正規化を提供する。
// 患者・クリニックの電話番号はE.164形式で保存し、
// リマインダー送信時にそのまま宛先として使えるようにする。
package phone

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidNumber は電話番号として解釈できない入力に対して返される。
var ErrInvalidNumber = errors.New("invalid phone number")

// Normalizer は既定の国コードで電話番号をE.164形式に正規化する。
type Normalizer struct {
	defaultRegion string
}

// NewNormalizer はNormalizerを生成する。
// defaultRegionは国番号なしで入力された番号の解釈に使うISO 3166-1 alpha-2コード（例: "JP"）。
func NewNormalizer(defaultRegion string) *Normalizer {
	return &Normalizer{defaultRegion: strings.ToUpper(defaultRegion)}
}

// Normalize は入力をE.164形式（例: +819012345678）に変換する。
// 空文字列は空文字列のまま返す（電話番号は任意項目のため）。
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, n.defaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidNumber, err.Error())
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// Rule は ozzo-validation 用の検証ルールを返す。空文字列は検証しない。
func (n *Normalizer) Rule() validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if _, err := n.Normalize(s); err != nil {
			return errors.New("電話番号の形式が正しくありません")
		}
		return nil
	})
}
