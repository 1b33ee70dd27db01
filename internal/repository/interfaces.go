// Package repository はデータ永続化のインターフェースを定義する。
// クリニックが所有する行の操作は必ず clinic_id で絞り込む。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/clinicman/internal/model"
)

// ClinicRepository はクリニックの永続化インターフェース。
type ClinicRepository interface {
	// FindByID は指定IDのクリニックを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Clinic, error)

	// Update はクリニックの名称・住所・電話番号を更新する。
	Update(ctx context.Context, clinic *model.Clinic) error

	// CreateWithAdmin はクリニックと最初の管理者ユーザーを同一トランザクションで作成する。
	CreateWithAdmin(ctx context.Context, clinic *model.Clinic, admin *model.User) error
}

// UserRepository はユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	// 認証ゲートから使われるため clinic_id では絞り込まない。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でユーザーを検索する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindInClinic はクリニック内の指定IDのユーザーを取得する。
	FindInClinic(ctx context.Context, clinicID, id string) (*model.User, error)

	// ListByClinic はクリニックのユーザー一覧と総件数を返す。
	ListByClinic(ctx context.Context, clinicID string, page model.Page) ([]*model.User, int, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update は氏名と権限を更新する。
	Update(ctx context.Context, user *model.User) error

	// SetActive は有効/無効を切り替える。
	SetActive(ctx context.Context, clinicID, id string, active bool) error

	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PatientRepository は患者の永続化インターフェース。
type PatientRepository interface {
	FindByID(ctx context.Context, clinicID, id string) (*model.Patient, error)
	List(ctx context.Context, clinicID string, filter model.PatientFilter) ([]*model.Patient, int, error)
	Create(ctx context.Context, patient *model.Patient) error
	Update(ctx context.Context, patient *model.Patient) error
	// SetActive は論理削除（active=false）と復元に使う。
	SetActive(ctx context.Context, clinicID, id string, active bool) error
}

// SessionRepository は施術セッションの永続化インターフェース。
type SessionRepository interface {
	FindByID(ctx context.Context, clinicID, id string) (*model.TreatmentSession, error)
	List(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error)
	Create(ctx context.Context, session *model.TreatmentSession) error
	Update(ctx context.Context, session *model.TreatmentSession) error

	// UpdateStatus は現在の状態がfromの場合のみtoへ変更する。
	// 状態が変わっていた場合はErrConflictを返す。
	UpdateStatus(ctx context.Context, clinicID, id string, from, to model.SessionStatus) error

	Delete(ctx context.Context, clinicID, id string) error
}

// InvoiceRepository は請求書の永続化インターフェース。
type InvoiceRepository interface {
	FindByID(ctx context.Context, clinicID, id string) (*model.Invoice, error)
	List(ctx context.Context, clinicID string, filter model.InvoiceFilter) ([]*model.Invoice, int, error)
	// Create は請求書を作成する。番号重複時はErrDuplicateを返す。
	Create(ctx context.Context, invoice *model.Invoice) error
	// Update は請求書を更新する。番号重複時はErrDuplicateを返す。
	Update(ctx context.Context, invoice *model.Invoice) error
	// DeleteDraft は下書き状態の請求書のみ削除する。下書きでない場合はErrConflictを返す。
	DeleteDraft(ctx context.Context, clinicID, id string) error
}

// BonusRepository はスタッフボーナスの永続化インターフェース。
type BonusRepository interface {
	FindByID(ctx context.Context, clinicID, id string) (*model.Bonus, error)
	List(ctx context.Context, clinicID string, filter model.BonusFilter) ([]*model.Bonus, int, error)
	Create(ctx context.Context, bonus *model.Bonus) error
	Update(ctx context.Context, bonus *model.Bonus) error
	Delete(ctx context.Context, clinicID, id string) error
}

// ReminderRepository はリマインダーの永続化インターフェース。
type ReminderRepository interface {
	FindByID(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	List(ctx context.Context, clinicID string, filter model.ReminderFilter) ([]*model.Reminder, int, error)
	Create(ctx context.Context, reminder *model.Reminder) error
	Update(ctx context.Context, reminder *model.Reminder) error

	// MarkSent は未送信のリマインダーを送信済みにする。
	// 未送信でない場合はErrConflictを返す。
	MarkSent(ctx context.Context, clinicID, id string, sentAt time.Time) error

	// Cancel は未送信のリマインダーを取り消す。
	// 未送信でない場合はErrConflictを返す。
	Cancel(ctx context.Context, clinicID, id string) error

	Delete(ctx context.Context, clinicID, id string) error
}

// CallRepository は通話記録の永続化インターフェース。
type CallRepository interface {
	FindByID(ctx context.Context, clinicID, id string) (*model.Call, error)
	List(ctx context.Context, clinicID string, filter model.CallFilter) ([]*model.Call, int, error)
	Create(ctx context.Context, call *model.Call) error
	Delete(ctx context.Context, clinicID, id string) error
}
