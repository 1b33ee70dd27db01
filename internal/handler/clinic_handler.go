package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clinicman/internal/clinic"
	"github.com/hitoshi/clinicman/internal/model"
)

// ClinicServiceInterface はクリニックハンドラーが必要とするサービスインターフェース。
type ClinicServiceInterface interface {
	Get(ctx context.Context, clinicID string) (*model.Clinic, error)
	Update(ctx context.Context, clinicID string, in clinic.UpdateInput) (*model.Clinic, error)
}

// ClinicHandler は自クリニック情報のHTTPハンドラー。
type ClinicHandler struct {
	service ClinicServiceInterface
}

// NewClinicHandler はClinicHandlerを生成する。
func NewClinicHandler(service ClinicServiceInterface) *ClinicHandler {
	return &ClinicHandler{service: service}
}

// Get は自クリニックの情報を返す。
// GET /api/clinic
func (h *ClinicHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), sc.ClinicID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toClinicResponse(c))
}

// Update は自クリニックの情報を更新する。
// PUT /api/clinic
func (h *ClinicHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in clinic.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	c, err := h.service.Update(r.Context(), sc.ClinicID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toClinicResponse(c))
}
