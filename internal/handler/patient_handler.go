package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/patient"
)

// PatientServiceInterface は患者ハンドラーが必要とするサービスインターフェース。
type PatientServiceInterface interface {
	List(ctx context.Context, clinicID string, filter model.PatientFilter) ([]*model.Patient, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.Patient, error)
	Create(ctx context.Context, clinicID string, in patient.Input) (*model.Patient, error)
	Update(ctx context.Context, clinicID, id string, in patient.Input) (*model.Patient, error)
	// Delete は論理削除（active=false）。
	Delete(ctx context.Context, clinicID, id string) error
	Restore(ctx context.Context, clinicID, id string) error
}

// PatientHandler は患者台帳のHTTPハンドラー。
type PatientHandler struct {
	service PatientServiceInterface
}

// NewPatientHandler はPatientHandlerを生成する。
func NewPatientHandler(service PatientServiceInterface) *PatientHandler {
	return &PatientHandler{service: service}
}

// List は患者一覧を返す。
// GET /api/patients?q=&active=&limit=&offset=
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	active, err := parseBoolQuery(r, "active")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filter := model.PatientFilter{
		Query:  r.URL.Query().Get("q"),
		Active: active,
		Page:   page,
	}
	patients, total, err := h.service.List(r.Context(), sc.ClinicID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toPatientResponses(patients), total, page)
}

// Get は患者を1件返す。
// GET /api/patients/{id}
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewPatientNotFoundError)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toPatientResponse(p))
}

// Create は患者を登録する。
// POST /api/patients
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in patient.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	p, err := h.service.Create(r.Context(), sc.ClinicID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toPatientResponse(p))
}

// Update は患者情報を置き換える。
// PUT /api/patients/{id}
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewPatientNotFoundError)
	if !ok {
		return
	}
	var in patient.Input
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	p, err := h.service.Update(r.Context(), sc.ClinicID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toPatientResponse(p))
}

// Delete は患者を論理削除する。
// DELETE /api/patients/{id}
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewPatientNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore は論理削除された患者を復元する。
// POST /api/patients/{id}/restore
func (h *PatientHandler) Restore(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewPatientNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Restore(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
