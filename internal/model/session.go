package model

import "time"

// SessionStatus は施術セッションの状態を表す。
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

// IsValid はSessionStatusが定義済みの値かどうかを返す。
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionScheduled, SessionCompleted, SessionCancelled, SessionNoShow:
		return true
	default:
		return false
	}
}

// CanTransitionTo は状態遷移が許可されているかを返す。
// 遷移できるのは scheduled からのみ。
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if s != SessionScheduled {
		return false
	}
	return next == SessionCompleted || next == SessionCancelled || next == SessionNoShow
}

// TreatmentSession は患者の施術（予約）セッションを表す。
// 認証トークンとは無関係で、テーブル名は sessions。
type TreatmentSession struct {
	ID              string
	ClinicID        string
	PatientID       string
	TherapistID     string
	ScheduledAt     time.Time
	DurationMinutes int
	Status          SessionStatus
	PriceCents      int64
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SessionFilter は施術セッション一覧の絞り込み条件。
type SessionFilter struct {
	PatientID   string
	TherapistID string
	Status      SessionStatus
	From        *time.Time
	To          *time.Time
	Page        Page
}
