package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clinicman/internal/billing"
	"github.com/hitoshi/clinicman/internal/model"
)

// InvoiceServiceInterface は請求書ハンドラーが必要とするサービスインターフェース。
type InvoiceServiceInterface interface {
	List(ctx context.Context, clinicID string, filter model.InvoiceFilter) ([]*model.Invoice, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.Invoice, error)
	Create(ctx context.Context, clinicID string, in billing.InvoiceInput) (*model.Invoice, error)
	Update(ctx context.Context, clinicID, id string, in billing.InvoiceInput) (*model.Invoice, error)
	// Delete は下書き以外の請求書に対して INVOICE_NOT_DRAFT を返す。
	Delete(ctx context.Context, clinicID, id string) error
}

// BonusServiceInterface はボーナスハンドラーが必要とするサービスインターフェース。
type BonusServiceInterface interface {
	List(ctx context.Context, clinicID string, filter model.BonusFilter) ([]*model.Bonus, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.Bonus, error)
	Create(ctx context.Context, clinicID string, in billing.BonusInput) (*model.Bonus, error)
	Update(ctx context.Context, clinicID, id string, in billing.BonusInput) (*model.Bonus, error)
	Delete(ctx context.Context, clinicID, id string) error
}

// InvoiceHandler は請求書のHTTPハンドラー。
type InvoiceHandler struct {
	service InvoiceServiceInterface
}

// NewInvoiceHandler はInvoiceHandlerを生成する。
func NewInvoiceHandler(service InvoiceServiceInterface) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// List は請求書一覧を返す。
// GET /api/invoices?patient_id=&status=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
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

	filter := model.InvoiceFilter{
		PatientID: patientID,
		Status:    model.InvoiceStatus(r.URL.Query().Get("status")),
		Page:      page,
	}
	invoices, total, err := h.service.List(r.Context(), sc.ClinicID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toInvoiceResponses(invoices), total, page)
}

// Get は請求書を1件返す。
// GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewInvoiceNotFoundError)
	if !ok {
		return
	}

	inv, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toInvoiceResponse(inv))
}

// Create は請求書を作成する。
// POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in billing.InvoiceInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	inv, err := h.service.Create(r.Context(), sc.ClinicID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toInvoiceResponse(inv))
}

// Update は請求書を置き換える。
// PUT /api/invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewInvoiceNotFoundError)
	if !ok {
		return
	}
	var in billing.InvoiceInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	inv, err := h.service.Update(r.Context(), sc.ClinicID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toInvoiceResponse(inv))
}

// Delete は下書きの請求書を削除する。
// DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewInvoiceNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BonusHandler はスタッフボーナスのHTTPハンドラー。ルーターで管理者に限定する。
type BonusHandler struct {
	service BonusServiceInterface
}

// NewBonusHandler はBonusHandlerを生成する。
func NewBonusHandler(service BonusServiceInterface) *BonusHandler {
	return &BonusHandler{service: service}
}

// List はボーナス一覧を返す。
// GET /api/bonuses?user_id=&period=
func (h *BonusHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	userID, err := optionalUUIDQuery(r, "user_id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	filter := model.BonusFilter{
		UserID: userID,
		Period: r.URL.Query().Get("period"),
		Page:   page,
	}
	bonuses, total, err := h.service.List(r.Context(), sc.ClinicID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toBonusResponses(bonuses), total, page)
}

// Get はボーナスを1件返す。
// GET /api/bonuses/{id}
func (h *BonusHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewBonusNotFoundError)
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBonusResponse(b))
}

// Create はボーナスを登録する。
// POST /api/bonuses
func (h *BonusHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in billing.BonusInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	b, err := h.service.Create(r.Context(), sc.ClinicID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toBonusResponse(b))
}

// Update はボーナスを置き換える。
// PUT /api/bonuses/{id}
func (h *BonusHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewBonusNotFoundError)
	if !ok {
		return
	}
	var in billing.BonusInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	b, err := h.service.Update(r.Context(), sc.ClinicID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toBonusResponse(b))
}

// Delete はボーナスを削除する。
// DELETE /api/bonuses/{id}
func (h *BonusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, model.NewBonusNotFoundError)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
