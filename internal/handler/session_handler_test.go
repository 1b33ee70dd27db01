package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/treatment"
)

func TestSessionHandler_List_ParsesRange(t *testing.T) {
	svc := &mockSessionService{
		listFn: func(ctx context.Context, clinicID string, filter model.SessionFilter) ([]*model.TreatmentSession, int, error) {
			if filter.PatientID != testPatientID {
				t.Errorf("patient_id = %q", filter.PatientID)
			}
			if filter.Status != model.SessionScheduled {
				t.Errorf("status = %q", filter.Status)
			}
			wantFrom := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
			if filter.From == nil || !filter.From.Equal(wantFrom) {
				t.Errorf("from = %v, want %v", filter.From, wantFrom)
			}
			if filter.To == nil {
				t.Error("to should be set")
			}
			return []*model.TreatmentSession{{ID: testID, Status: model.SessionScheduled}}, 1, nil
		},
	}
	h := NewSessionHandler(svc)

	url := "/api/sessions?patient_id=" + testPatientID + "&status=scheduled&from=2026-04-01T00:00:00Z&to=2026-05-01T00:00:00Z"
	req := withStaff(httptest.NewRequest(http.MethodGet, url, nil))
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSessionHandler_List_InvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"不正な日時", "from=2026-04-01"},
		{"不正な患者ID", "patient_id=abc"},
		{"不正な担当者ID", "therapist_id=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSessionHandler(&mockSessionService{})
			req := withStaff(httptest.NewRequest(http.MethodGet, "/api/sessions?"+tt.query, nil))
			w := httptest.NewRecorder()

			h.List(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSessionHandler_Create_PassesActor(t *testing.T) {
	svc := &mockSessionService{
		createFn: func(ctx context.Context, clinicID, actorID string, in treatment.Input) (*model.TreatmentSession, error) {
			if actorID != testUserID {
				t.Errorf("actorID = %q, want %q", actorID, testUserID)
			}
			if in.DurationMinutes != 60 || in.PriceCents != 800000 {
				t.Errorf("input = %+v", in)
			}
			return &model.TreatmentSession{ID: testID, TherapistID: actorID, Status: model.SessionScheduled}, nil
		},
	}
	h := NewSessionHandler(svc)

	body := `{"patient_id":"` + testPatientID + `","scheduled_at":"2026-04-10T10:00:00Z","duration_minutes":60,"price_cents":800000}`
	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body)))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var data sessionResponse
	parseSuccess(t, w, &data)
	if data.TherapistID != testUserID {
		t.Errorf("therapist_id = %q", data.TherapistID)
	}
}

func TestSessionHandler_ChangeStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"完了にする", nil, http.StatusOK},
		{"終了済みからは変更できない", model.NewInvalidStatusTransitionError("completed", "cancelled"), http.StatusConflict},
		{"存在しない", model.NewSessionNotFoundError(testID), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSessionService{
				changeStatusFn: func(ctx context.Context, clinicID, id string, in treatment.StatusInput) (*model.TreatmentSession, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.TreatmentSession{ID: id, Status: in.Status}, nil
				},
			}
			h := NewSessionHandler(svc)

			req := httptest.NewRequest(http.MethodPatch, "/api/sessions/"+testID+"/status", strings.NewReader(`{"status":"completed"}`))
			req = withChiURLParam(withStaff(req), "id", testID)
			w := httptest.NewRecorder()

			h.ChangeStatus(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{})

	req := withChiURLParam(withStaff(httptest.NewRequest(http.MethodDelete, "/api/sessions/"+testID, nil)), "id", testID)
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
