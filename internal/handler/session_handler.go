package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/treatment"
)

// SessionServiceInterface は施術セッションハンドラーが必要とするサービスインターフェース。
type SessionServiceInterface interface {
	List(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.TreatmentSession, error)
	Create(ctx context.Context, clinicID, actorID string, in treatment.Input) (*model.TreatmentSession, error)
	Update(ctx context.Context, clinicID, actorID, id string, in treatment.Input) (*model.TreatmentSession, error)
	ChangeStatus(ctx context.Context, clinicID, id string, in treatment.StatusInput) (*model.TreatmentSession, error)
	Delete(ctx context.Context, clinicID, id string) error
}

// SessionHandler は施術セッションのHTTPハンドラー。
type SessionHandler struct {
	service SessionServiceInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// List はセッション一覧を返す。
// GET /api/sessions?patient_id=&therapist_id=&status=&from=&to=
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	filter, page, err := sessionFilterFromQuery(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sessions, total, err := h.service.List(r.Context(), sc.ClinicID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toSessionResponses(sessions), total, page)
}

func sessionFilterFromQuery(r *http.Request) (model.SessionFilter, model.Page, error) {
	page, err := parsePage(r)
	if err != nil {
		return model.SessionFilter{}, page, err
	}
	patientID, err := optionalUUIDQuery(r, "patient_id")
	if err != nil {
		return model.SessionFilter{}, page, err
	}
	therapistID, err := optionalUUIDQuery(r, "therapist_id")
	if err != nil {
		return model.SessionFilter{}, page, err
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		return model.SessionFilter{}, page, err
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		return model.SessionFilter{}, page, err
	}
	return model.SessionFilter{
		PatientID:   patientID,
		TherapistID: therapistID,
		Status:      model.SessionStatus(r.URL.Query().Get("status")),
		From:        from,
		To:          to,
		Page:        page,
	}, page, nil
}

// Get はセッションを1件返す。
// GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewSessionNotFoundError)
	if !ok {
		return
	}

	s, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toSessionResponse(s))
}

// Create はセッションを予約する。担当者を省略した場合は操作者が担当する。
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in treatment.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	s, err := h.service.Create(r.Context(), sc.ClinicID, sc.UserID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toSessionResponse(s))
}

// Update はセッションを置き換える。
// PUT /api/sessions/{id}
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewSessionNotFoundError)
	if !ok {
		return
	}
	var in treatment.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	s, err := h.service.Update(r.Context(), sc.ClinicID, sc.UserID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toSessionResponse(s))
}

// ChangeStatus はセッションの状態を変更する。
// PATCH /api/sessions/{id}/status
func (h *SessionHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewSessionNotFoundError)
	if !ok {
		return
	}
	var in treatment.StatusInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	s, err := h.service.ChangeStatus(r.Context(), sc.ClinicID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toSessionResponse(s))
}

// Delete はセッションを削除する。
// DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewSessionNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
