package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/billing"
	"github.com/hitoshi/clinicman/internal/calllog"
	"github.com/hitoshi/clinicman/internal/clinic"
	"github.com/hitoshi/clinicman/internal/middleware"
	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/patient"
	"github.com/hitoshi/clinicman/internal/reminder"
	"github.com/hitoshi/clinicman/internal/treatment"
	"github.com/hitoshi/clinicman/internal/user"
)

const (
	testClinicID  = "c0000000-0000-4000-8000-000000000001"
	testUserID    = "a0000000-0000-4000-8000-000000000001"
	testPatientID = "b0000000-0000-4000-8000-000000000001"
	testID        = "d0000000-0000-4000-8000-000000000001"
)

// --- テストヘルパー ---

// withScope は認証・テナント解決済みのコンテキストを注入するヘルパー。
func withScope(r *http.Request, clinicID, userID string, role model.Role) *http.Request {
	ctx := middleware.ContextWithIdentity(r.Context(), auth.Identity{ID: userID, Email: "staff@example.com", Name: "Staff"})
	ctx = middleware.ContextWithTenant(ctx, clinicID, role)
	return r.WithContext(ctx)
}

// withStaff は既定のクリニック・スタッフとしてのスコープを注入する。
func withStaff(r *http.Request) *http.Request {
	return withScope(r, testClinicID, testUserID, model.RoleStaff)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var result middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// parseSuccess は成功レスポンスの data を out にデコードし、エンベロープ全体を返す。
func parseSuccess(t *testing.T, w *httptest.ResponseRecorder, out interface{}) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(envelope["success"]) != "true" {
		t.Fatalf("success = %s, want true", envelope["success"])
	}
	if out != nil {
		if err := json.Unmarshal(envelope["data"], out); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return envelope
}

// --- モック定義 ---

type mockAuthService struct {
	loginFn       func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	currentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return &model.User{ID: userID, ClinicID: testClinicID, Role: model.RoleStaff, Active: true}, nil
}

type mockClinicService struct {
	getFn    func(ctx context.Context, clinicID string) (*model.Clinic, error)
	updateFn func(ctx context.Context, clinicID string, in clinic.UpdateInput) (*model.Clinic, error)
}

func (m *mockClinicService) Get(ctx context.Context, clinicID string) (*model.Clinic, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID)
	}
	return &model.Clinic{ID: clinicID, Name: "テストクリニック"}, nil
}

func (m *mockClinicService) Update(ctx context.Context, clinicID string, in clinic.UpdateInput) (*model.Clinic, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, in)
	}
	return &model.Clinic{ID: clinicID, Name: in.Name}, nil
}

type mockUserService struct {
	listFn           func(ctx context.Context, clinicID string, page model.Page) ([]*model.User, int, error)
	getFn            func(ctx context.Context, clinicID, id string) (*model.User, error)
	createFn         func(ctx context.Context, clinicID string, in user.CreateInput) (*model.User, error)
	updateFn         func(ctx context.Context, clinicID, id string, in user.UpdateInput) (*model.User, error)
	deactivateFn     func(ctx context.Context, clinicID, actorID, id string) error
	reactivateFn     func(ctx context.Context, clinicID, id string) error
	changePasswordFn func(ctx context.Context, userID string, in user.ChangePasswordInput) error
}

func (m *mockUserService) List(ctx context.Context, clinicID string, page model.Page) ([]*model.User, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, page)
	}
	return nil, 0, nil
}

func (m *mockUserService) Get(ctx context.Context, clinicID, id string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.User{ID: id, ClinicID: clinicID}, nil
}

func (m *mockUserService) Create(ctx context.Context, clinicID string, in user.CreateInput) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, in)
	}
	return &model.User{ID: testID, ClinicID: clinicID, Email: in.Email, Role: in.Role, Active: true}, nil
}

func (m *mockUserService) Update(ctx context.Context, clinicID, id string, in user.UpdateInput) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, id, in)
	}
	return &model.User{ID: id, ClinicID: clinicID, Name: in.Name, Role: in.Role}, nil
}

func (m *mockUserService) Deactivate(ctx context.Context, clinicID, actorID, id string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, clinicID, actorID, id)
	}
	return nil
}

func (m *mockUserService) Reactivate(ctx context.Context, clinicID, id string) error {
	if m.reactivateFn != nil {
		return m.reactivateFn(ctx, clinicID, id)
	}
	return nil
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID string, in user.ChangePasswordInput) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(ctx, userID, in)
	}
	return nil
}

type mockPatientService struct {
	listFn    func(ctx context.Context, clinicID string, filter model.PatientFilter) ([]*model.Patient, int, error)
	getFn     func(ctx context.Context, clinicID, id string) (*model.Patient, error)
	createFn  func(ctx context.Context, clinicID string, in patient.Input) (*model.Patient, error)
	updateFn  func(ctx context.Context, clinicID, id string, in patient.Input) (*model.Patient, error)
	deleteFn  func(ctx context.Context, clinicID, id string) error
	restoreFn func(ctx context.Context, clinicID, id string) error
}

func (m *mockPatientService) List(ctx context.Context, clinicID string, filter model.PatientFilter) ([]*model.Patient, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, filter)
	}
	return nil, 0, nil
}

func (m *mockPatientService) Get(ctx context.Context, clinicID, id string) (*model.Patient, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.Patient{ID: id, ClinicID: clinicID, Active: true}, nil
}

func (m *mockPatientService) Create(ctx context.Context, clinicID string, in patient.Input) (*model.Patient, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, in)
	}
	return &model.Patient{ID: testPatientID, ClinicID: clinicID, Name: in.Name, Active: true}, nil
}

func (m *mockPatientService) Update(ctx context.Context, clinicID, id string, in patient.Input) (*model.Patient, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, id, in)
	}
	return &model.Patient{ID: id, ClinicID: clinicID, Name: in.Name, Active: true}, nil
}

func (m *mockPatientService) Delete(ctx context.Context, clinicID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clinicID, id)
	}
	return nil
}

func (m *mockPatientService) Restore(ctx context.Context, clinicID, id string) error {
	if m.restoreFn != nil {
		return m.restoreFn(ctx, clinicID, id)
	}
	return nil
}

type mockSessionService struct {
	listFn         func(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error)
	getFn          func(ctx context.Context, clinicID, id string) (*model.TreatmentSession, error)
	createFn       func(ctx context.Context, clinicID, actorID string, in treatment.Input) (*model.TreatmentSession, error)
	updateFn       func(ctx context.Context, clinicID, actorID, id string, in treatment.Input) (*model.TreatmentSession, error)
	changeStatusFn func(ctx context.Context, clinicID, id string, in treatment.StatusInput) (*model.TreatmentSession, error)
	deleteFn       func(ctx context.Context, clinicID, id string) error
}

func (m *mockSessionService) List(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, filter)
	}
	return nil, 0, nil
}

func (m *mockSessionService) Get(ctx context.Context, clinicID, id string) (*model.TreatmentSession, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.TreatmentSession{ID: id, ClinicID: clinicID, Status: model.SessionScheduled}, nil
}

func (m *mockSessionService) Create(ctx context.Context, clinicID, actorID string, in treatment.Input) (*model.TreatmentSession, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, actorID, in)
	}
	return &model.TreatmentSession{ID: testID, ClinicID: clinicID, TherapistID: actorID, Status: model.SessionScheduled}, nil
}

func (m *mockSessionService) Update(ctx context.Context, clinicID, actorID, id string, in treatment.Input) (*model.TreatmentSession, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, actorID, id, in)
	}
	return &model.TreatmentSession{ID: id, ClinicID: clinicID, Status: model.SessionScheduled}, nil
}

func (m *mockSessionService) ChangeStatus(ctx context.Context, clinicID, id string, in treatment.StatusInput) (*model.TreatmentSession, error) {
	if m.changeStatusFn != nil {
		return m.changeStatusFn(ctx, clinicID, id, in)
	}
	return &model.TreatmentSession{ID: id, ClinicID: clinicID, Status: in.Status}, nil
}

func (m *mockSessionService) Delete(ctx context.Context, clinicID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clinicID, id)
	}
	return nil
}

type mockInvoiceService struct {
	listFn   func(ctx context.Context, clinicID string, filter model.InvoiceFilter) ([]*model.Invoice, int, error)
	getFn    func(ctx context.Context, clinicID, id string) (*model.Invoice, error)
	createFn func(ctx context.Context, clinicID string, in billing.InvoiceInput) (*model.Invoice, error)
	updateFn func(ctx context.Context, clinicID, id string, in billing.InvoiceInput) (*model.Invoice, error)
	deleteFn func(ctx context.Context, clinicID, id string) error
}

func (m *mockInvoiceService) List(ctx context.Context, clinicID string, filter model.InvoiceFilter) ([]*model.Invoice, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, filter)
	}
	return nil, 0, nil
}

func (m *mockInvoiceService) Get(ctx context.Context, clinicID, id string) (*model.Invoice, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.Invoice{ID: id, ClinicID: clinicID, Status: model.InvoiceDraft}, nil
}

func (m *mockInvoiceService) Create(ctx context.Context, clinicID string, in billing.InvoiceInput) (*model.Invoice, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, in)
	}
	return &model.Invoice{ID: testID, ClinicID: clinicID, Number: in.Number, Status: model.InvoiceDraft}, nil
}

func (m *mockInvoiceService) Update(ctx context.Context, clinicID, id string, in billing.InvoiceInput) (*model.Invoice, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, id, in)
	}
	return &model.Invoice{ID: id, ClinicID: clinicID, Number: in.Number, Status: in.Status}, nil
}

func (m *mockInvoiceService) Delete(ctx context.Context, clinicID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clinicID, id)
	}
	return nil
}

type mockBonusService struct {
	listFn   func(ctx context.Context, clinicID string, filter model.BonusFilter) ([]*model.Bonus, int, error)
	getFn    func(ctx context.Context, clinicID, id string) (*model.Bonus, error)
	createFn func(ctx context.Context, clinicID string, in billing.BonusInput) (*model.Bonus, error)
	updateFn func(ctx context.Context, clinicID, id string, in billing.BonusInput) (*model.Bonus, error)
	deleteFn func(ctx context.Context, clinicID, id string) error
}

func (m *mockBonusService) List(ctx context.Context, clinicID string, filter model.BonusFilter) ([]*model.Bonus, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, filter)
	}
	return nil, 0, nil
}

func (m *mockBonusService) Get(ctx context.Context, clinicID, id string) (*model.Bonus, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.Bonus{ID: id, ClinicID: clinicID}, nil
}

func (m *mockBonusService) Create(ctx context.Context, clinicID string, in billing.BonusInput) (*model.Bonus, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, in)
	}
	return &model.Bonus{ID: testID, ClinicID: clinicID, UserID: in.UserID, Period: in.Period, AmountCents: in.AmountCents}, nil
}

func (m *mockBonusService) Update(ctx context.Context, clinicID, id string, in billing.BonusInput) (*model.Bonus, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, id, in)
	}
	return &model.Bonus{ID: id, ClinicID: clinicID, Period: in.Period}, nil
}

func (m *mockBonusService) Delete(ctx context.Context, clinicID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clinicID, id)
	}
	return nil
}

type mockReminderService struct {
	listFn     func(ctx context.Context, clinicID string, filter model.ReminderFilter) ([]*model.Reminder, int, error)
	getFn      func(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	createFn   func(ctx context.Context, clinicID string, in reminder.Input) (*model.Reminder, error)
	updateFn   func(ctx context.Context, clinicID, id string, in reminder.Input) (*model.Reminder, error)
	markSentFn func(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	cancelFn   func(ctx context.Context, clinicID, id string) (*model.Reminder, error)
	deleteFn   func(ctx context.Context, clinicID, id string) error
}

func (m *mockReminderService) List(ctx context.Context, clinicID string, filter model.ReminderFilter) ([]*model.Reminder, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, filter)
	}
	return nil, 0, nil
}

func (m *mockReminderService) Get(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.Reminder{ID: id, ClinicID: clinicID, Status: model.ReminderPending}, nil
}

func (m *mockReminderService) Create(ctx context.Context, clinicID string, in reminder.Input) (*model.Reminder, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, in)
	}
	return &model.Reminder{ID: testID, ClinicID: clinicID, PatientID: in.PatientID, Status: model.ReminderPending}, nil
}

func (m *mockReminderService) Update(ctx context.Context, clinicID, id string, in reminder.Input) (*model.Reminder, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, clinicID, id, in)
	}
	return &model.Reminder{ID: id, ClinicID: clinicID, Status: model.ReminderPending}, nil
}

func (m *mockReminderService) MarkSent(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	if m.markSentFn != nil {
		return m.markSentFn(ctx, clinicID, id)
	}
	return &model.Reminder{ID: id, ClinicID: clinicID, Status: model.ReminderSent}, nil
}

func (m *mockReminderService) Cancel(ctx context.Context, clinicID, id string) (*model.Reminder, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, clinicID, id)
	}
	return &model.Reminder{ID: id, ClinicID: clinicID, Status: model.ReminderCancelled}, nil
}

func (m *mockReminderService) Delete(ctx context.Context, clinicID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clinicID, id)
	}
	return nil
}

type mockCallService struct {
	listFn   func(ctx context.Context, clinicID string, filter model.CallFilter) ([]*model.Call, int, error)
	getFn    func(ctx context.Context, clinicID, id string) (*model.Call, error)
	createFn func(ctx context.Context, clinicID, actorID string, in calllog.Input) (*model.Call, error)
	deleteFn func(ctx context.Context, clinicID, id string) error
}

func (m *mockCallService) List(ctx context.Context, clinicID string, filter model.CallFilter) ([]*model.Call, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, clinicID, filter)
	}
	return nil, 0, nil
}

func (m *mockCallService) Get(ctx context.Context, clinicID, id string) (*model.Call, error) {
	if m.getFn != nil {
		return m.getFn(ctx, clinicID, id)
	}
	return &model.Call{ID: id, ClinicID: clinicID}, nil
}

func (m *mockCallService) Create(ctx context.Context, clinicID, actorID string, in calllog.Input) (*model.Call, error) {
	if m.createFn != nil {
		return m.createFn(ctx, clinicID, actorID, in)
	}
	return &model.Call{ID: testID, ClinicID: clinicID, UserID: actorID, Direction: in.Direction}, nil
}

func (m *mockCallService) Delete(ctx context.Context, clinicID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, clinicID, id)
	}
	return nil
}
