package model

const (
	// DefaultPageLimit は一覧取得時のデフォルト件数。
	DefaultPageLimit = 20
	// MaxPageLimit は一覧取得時の最大件数。
	MaxPageLimit = 100
)

// Page はオフセットベースのページ指定。
type Page struct {
	Limit  int
	Offset int
}

// Normalize は範囲外の値をデフォルト・上限に丸めたPageを返す。
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
