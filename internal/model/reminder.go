package model

import "time"

// ReminderChannel はリマインダーの送信経路。
type ReminderChannel string

const (
	ChannelWhatsApp ReminderChannel = "whatsapp"
	ChannelSMS      ReminderChannel = "sms"
	ChannelCall     ReminderChannel = "call"
)

// IsValid はReminderChannelが定義済みの値かどうかを返す。
func (c ReminderChannel) IsValid() bool {
	return c == ChannelWhatsApp || c == ChannelSMS || c == ChannelCall
}

// ReminderStatus はリマインダーの状態。
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCancelled ReminderStatus = "cancelled"
)

// IsValid はReminderStatusが定義済みの値かどうかを返す。
func (s ReminderStatus) IsValid() bool {
	return s == ReminderPending || s == ReminderSent || s == ReminderCancelled
}

// Reminder は患者への連絡予定を表す。
type Reminder struct {
	ID        string
	ClinicID  string
	PatientID string
	SessionID *string
	Channel   ReminderChannel
	RemindAt  time.Time
	Message   string
	Status    ReminderStatus
	SentAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReminderFilter はリマインダー一覧の絞り込み条件。
type ReminderFilter struct {
	PatientID string
	Status    ReminderStatus
	DueBefore *time.Time
	Page      Page
}

// CallDirection は通話の発着信区分。
type CallDirection string

const (
	CallInbound  CallDirection = "inbound"
	CallOutbound CallDirection = "outbound"
)

// IsValid はCallDirectionが定義済みの値かどうかを返す。
func (d CallDirection) IsValid() bool {
	return d == CallInbound || d == CallOutbound
}

// Call は患者との通話記録を表す。
type Call struct {
	ID        string
	ClinicID  string
	PatientID string
	UserID    string
	CalledAt  time.Time
	Direction CallDirection
	Outcome   string
	Notes     string
	CreatedAt time.Time
}

// CallFilter は通話記録一覧の絞り込み条件。
type CallFilter struct {
	PatientID string
	Page      Page
}
