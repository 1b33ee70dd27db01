package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clinicman/internal/calllog"
	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/reminder"
)

// ReminderServiceInterface はリマインダーハンドラーが必要とするサービスインターフェース。
type ReminderServiceInterface interface {
	List(ctx context.Context, clinicID string, filter model.ReminderFilter) ([]*model.Reminder, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	Create(ctx context.Context, clinicID string, in reminder.Input) (*model.Reminder, error)
	Update(ctx context.Context, clinicID, id string, in reminder.Input) (*model.Reminder, error)
	MarkSent(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	Cancel(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	Delete(ctx context.Context, clinicID, id string) error
}

// CallServiceInterface は通話記録ハンドラーが必要とするサービスインターフェース。
type CallServiceInterface interface {
	List(ctx context.Context, clinicID string, filter model.CallFilter) ([]*model.Call, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.Call, error)
	Create(ctx context.Context, clinicID, actorID string, in calllog.Input) (*model.Call, error)
	Delete(ctx context.Context, clinicID, id string) error
}

// ReminderHandler はリマインダーのHTTPハンドラー。
type ReminderHandler struct {
	service ReminderServiceInterface
}

// NewReminderHandler はReminderHandlerを生成する。
func NewReminderHandler(service ReminderServiceInterface) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// List はリマインダー一覧を返す。
// GET /api/reminders?patient_id=&status=&due_before=
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	patientID, err := optionalUUIDQuery(r, "patient_id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	dueBefore, err := parseTimeQuery(r, "due_before")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filter := model.ReminderFilter{
		PatientID: patientID,
		Status:    model.ReminderStatus(r.URL.Query().Get("status")),
		DueBefore: dueBefore,
		Page:      page,
	}
	reminders, total, err := h.service.List(r.Context(), sc.ClinicID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toReminderResponses(reminders), total, page)
}

// Get はリマインダーを1件返す。
// GET /api/reminders/{id}
func (h *ReminderHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewReminderNotFoundError)
	if !ok {
		return
	}

	rm, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toReminderResponse(rm))
}

// Create はリマインダーを登録する。
// POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in reminder.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	rm, err := h.service.Create(r.Context(), sc.ClinicID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toReminderResponse(rm))
}

// Update は未送信のリマインダーを置き換える。
// PUT /api/reminders/{id}
func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewReminderNotFoundError)
	if !ok {
		return
	}
	var in reminder.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	rm, err := h.service.Update(r.Context(), sc.ClinicID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toReminderResponse(rm))
}

// MarkSent はリマインダーを送信済みにする。
// POST /api/reminders/{id}/mark-sent
func (h *ReminderHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkSent)
}

// Cancel はリマインダーを取り消す。
// POST /api/reminders/{id}/cancel
func (h *ReminderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *ReminderHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, clinicID, id string) (*model.Reminder, error),
) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewReminderNotFoundError)
	if !ok {
		return
	}

	rm, err := apply(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toReminderResponse(rm))
}

// Delete はリマインダーを削除する。
// DELETE /api/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewReminderNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CallHandler は通話記録のHTTPハンドラー。
type CallHandler struct {
	service CallServiceInterface
}

// NewCallHandler はCallHandlerを生成する。
func NewCallHandler(service CallServiceInterface) *CallHandler {
	return &CallHandler{service: service}
}

// List は通話記録の一覧を返す。
// GET /api/calls?patient_id=
func (h *CallHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	patientID, err := optionalUUIDQuery(r, "patient_id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	calls, total, err := h.service.List(r.Context(), sc.ClinicID, model.CallFilter{PatientID: patientID, Page: page})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toCallResponses(calls), total, page)
}

// Get は通話記録を1件返す。
// GET /api/calls/{id}
func (h *CallHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewCallNotFoundError)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toCallResponse(c))
}

// Create は通話記録を登録する。記録者は操作者になる。
// POST /api/calls
func (h *CallHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in calllog.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	c, err := h.service.Create(r.Context(), sc.ClinicID, sc.UserID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCallResponse(c))
}

// Delete は通話記録を削除する。
// DELETE /api/calls/{id}
func (h *CallHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewCallNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
