package model

import "time"

// Patient はクリニックの患者を表す。
// 削除は論理削除（Active=false）で行う。
type Patient struct {
	ID        string
	ClinicID  string
	Name      string
	Phone     string // E.164形式
	Email     string
	BirthDate *time.Time
	Notes     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PatientFilter は患者一覧の絞り込み条件。
type PatientFilter struct {
	Query  string // 氏名・電話番号の部分一致
	Active *bool
	Page   Page
}
