package handler

import (
	"time"

	"github.com/hitoshi/clinicman/internal/model"
)

// dateLayout は生年月日の表現形式。
const dateLayout = "2006-01-02"

type userResponse struct {
	ID        string     `json:"id"`
	ClinicID  string     `json:"clinic_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// パスワードハッシュはレスポンスに含めない
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		ClinicID:  u.ClinicID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserResponses(users []*model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type clinicResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toClinicResponse(c *model.Clinic) clinicResponse {
	return clinicResponse{
		ID:        c.ID,
		Name:      c.Name,
		Address:   c.Address,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type patientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	BirthDate *string   `json:"birth_date"`
	Notes     string    `json:"notes"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPatientResponse(p *model.Patient) patientResponse {
	resp := patientResponse{
		ID:        p.ID,
		Name:      p.Name,
		Phone:     p.Phone,
		Email:     p.Email,
		Notes:     p.Notes,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format(dateLayout)
		resp.BirthDate = &s
	}
	return resp
}

func toPatientResponses(patients []*model.Patient) []patientResponse {
	out := make([]patientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, toPatientResponse(p))
	}
	return out
}

type sessionResponse struct {
	ID              string              `json:"id"`
	PatientID       string              `json:"patient_id"`
	TherapistID     string              `json:"therapist_id"`
	ScheduledAt     time.Time           `json:"scheduled_at"`
	DurationMinutes int                 `json:"duration_minutes"`
	Status          model.SessionStatus `json:"status"`
	PriceCents      int64               `json:"price_cents"`
	Notes           string              `json:"notes"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toSessionResponse(s *model.TreatmentSession) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		PatientID:       s.PatientID,
		TherapistID:     s.TherapistID,
		ScheduledAt:     s.ScheduledAt,
		DurationMinutes: s.DurationMinutes,
		Status:          s.Status,
		PriceCents:      s.PriceCents,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toSessionResponses(sessions []*model.TreatmentSession) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	return out
}

type invoiceResponse struct {
	ID          string              `json:"id"`
	PatientID   string              `json:"patient_id"`
	Number      string              `json:"number"`
	IssuedAt    time.Time           `json:"issued_at"`
	AmountCents int64               `json:"amount_cents"`
	Status      model.InvoiceStatus `json:"status"`
	Notes       string              `json:"notes"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toInvoiceResponse(inv *model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID,
		PatientID:   inv.PatientID,
		Number:      inv.Number,
		IssuedAt:    inv.IssuedAt,
		AmountCents: inv.AmountCents,
		Status:      inv.Status,
		Notes:       inv.Notes,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

func toInvoiceResponses(invoices []*model.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	return out
}

type bonusResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Period      string    `json:"period"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toBonusResponse(b *model.Bonus) bonusResponse {
	return bonusResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		Period:      b.Period,
		AmountCents: b.AmountCents,
		Reason:      b.Reason,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBonusResponses(bonuses []*model.Bonus) []bonusResponse {
	out := make([]bonusResponse, 0, len(bonuses))
	for _, b := range bonuses {
		out = append(out, toBonusResponse(b))
	}
	return out
}

type reminderResponse struct {
	ID        string                `json:"id"`
	PatientID string                `json:"patient_id"`
	SessionID *string               `json:"session_id"`
	Channel   model.ReminderChannel `json:"channel"`
	RemindAt  time.Time             `json:"remind_at"`
	Message   string                `json:"message"`
	Status    model.ReminderStatus  `json:"status"`
	SentAt    *time.Time            `json:"sent_at"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func toReminderResponse(rm *model.Reminder) reminderResponse {
	return reminderResponse{
		ID:        rm.ID,
		PatientID: rm.PatientID,
		SessionID: rm.SessionID,
		Channel:   rm.Channel,
		RemindAt:  rm.RemindAt,
		Message:   rm.Message,
		Status:    rm.Status,
		SentAt:    rm.SentAt,
		CreatedAt: rm.CreatedAt,
		UpdatedAt: rm.UpdatedAt,
	}
}

func toReminderResponses(reminders []*model.Reminder) []reminderResponse {
	out := make([]reminderResponse, 0, len(reminders))
	for _, rm := range reminders {
		out = append(out, toReminderResponse(rm))
	}
	return out
}

type callResponse struct {
	ID        string              `json:"id"`
	PatientID string              `json:"patient_id"`
	UserID    string              `json:"user_id"`
	CalledAt  time.Time           `json:"called_at"`
	Direction model.CallDirection `json:"direction"`
	Outcome   string              `json:"outcome"`
	Notes     string              `json:"notes"`
	CreatedAt time.Time           `json:"created_at"`
}

func toCallResponse(c *model.Call) callResponse {
	return callResponse{
		ID:        c.ID,
		PatientID: c.PatientID,
		UserID:    c.UserID,
		CalledAt:  c.CalledAt,
		Direction: c.Direction,
		Outcome:   c.Outcome,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

func toCallResponses(calls []*model.Call) []callResponse {
	out := make([]callResponse, 0, len(calls))
	for _, c := range calls {
		out = append(out, toCallResponse(c))
	}
	return out
}
