package model

import "time"

// InvoiceStatus は請求書の状態を表す。
type InvoiceStatus string

const (
	InvoiceDraft  InvoiceStatus = "draft"
	InvoiceIssued InvoiceStatus = "issued"
	InvoicePaid   InvoiceStatus = "paid"
	InvoiceVoid   InvoiceStatus = "void"
)

// IsValid はInvoiceStatusが定義済みの値かどうかを返す。
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceDraft, InvoiceIssued, InvoicePaid, InvoiceVoid:
		return true
	default:
		return false
	}
}

// Invoice は患者への請求書を表す。
type Invoice struct {
	ID          string
	ClinicID    string
	PatientID   string
	Number      string // クリニック内で一意
	IssuedAt    time.Time
	AmountCents int64
	Status      InvoiceStatus
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvoiceFilter は請求書一覧の絞り込み条件。
type InvoiceFilter struct {
	PatientID string
	Status    InvoiceStatus
	Page      Page
}

// Bonus はスタッフへの月次ボーナスを表す。
type Bonus struct {
	ID          string
	ClinicID    string
	UserID      string
	Period      string // YYYY-MM
	AmountCents int64
	Reason      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BonusFilter はボーナス一覧の絞り込み条件。
type BonusFilter struct {
	UserID string
	Period string
	Page   Page
}
