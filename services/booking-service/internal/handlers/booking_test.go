package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

type fakeScheduler struct {
	err   error
	slots []engine.Slot
}

func (f *fakeScheduler) booking(tenantID string) *model.Booking {
	return &model.Booking{
		ID:            "bk-1",
		TenantID:      tenantID,
		ServiceID:     "svc-1",
		ResourceID:    "res-1",
		CustomerPhone: "+18090000001",
		StartsAt:      time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		EndsAt:        time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		Status:        model.StatusConfirmed,
	}
}

func (f *fakeScheduler) FindAvailableSlots(_ context.Context, _, _ string, _ time.Time) ([]engine.Slot, error) {
	return f.slots, f.err
}

func (f *fakeScheduler) Create(_ context.Context, p engine.CreateParams) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booking(p.TenantID), nil
}

func (f *fakeScheduler) Reschedule(_ context.Context, tenantID, _ string, _ time.Time) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booking(tenantID), nil
}

func (f *fakeScheduler) Cancel(_ context.Context, tenantID, _, _ string, _ bool) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	b := f.booking(tenantID)
	b.Status = model.StatusCancelled
	return b, nil
}

func (f *fakeScheduler) MarkNoShow(_ context.Context, tenantID, _ string) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	b := f.booking(tenantID)
	b.Status = model.StatusNoShow
	return b, nil
}

func (f *fakeScheduler) Get(_ context.Context, tenantID, _ string) (*model.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booking(tenantID), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreate_HappyPath(t *testing.T) {
	h := NewBookingHandler(&fakeScheduler{}, nil, discardLogger())
	body := `{"tenant_id":"t1","service_id":"svc-1","resource_id":"res-1","customer_phone":"+18090000001","starts_at":"2026-03-02T14:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}
	var got bookingView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "bk-1" || got.Status != model.StatusConfirmed {
		t.Fatalf("body = %+v", got)
	}
	if got.StartsAt != "2026-03-02T14:00:00Z" {
		t.Fatalf("starts_at = %q", got.StartsAt)
	}
}

func TestCreate_BadBodyAndBadTime(t *testing.T) {
	h := NewBookingHandler(&fakeScheduler{}, nil, discardLogger())

	for _, body := range []string{"{not json", `{"tenant_id":"t1","starts_at":"mañana"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/book", nil)
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status = %d, want 405", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &engine.NotFoundError{Kind: "booking", ID: "x"}, http.StatusNotFound},
		{"conflict", &engine.ConflictError{ResourceID: "res-1"}, http.StatusConflict},
		{"policy", &engine.PolicyViolationError{Code: engine.CodeCancelWindowViolation, LimitHours: 3, HoursDiff: 1.5}, http.StatusUnprocessableEntity},
		{"validation", &engine.ValidationError{Field: "starts_at", Reason: "required"}, http.StatusBadRequest},
		{"storage", &engine.StorageError{Op: "get booking"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewBookingHandler(&fakeScheduler{err: tc.err}, nil, discardLogger())
		body := `{"tenant_id":"t1","booking_id":"bk-1","starts_at":"2026-03-02T15:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/reschedule", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.Reschedule(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestCancel_PolicyViolationBody(t *testing.T) {
	h := NewBookingHandler(&fakeScheduler{err: &engine.PolicyViolationError{
		Code:       engine.CodeCancelWindowViolation,
		LimitHours: 3,
		HoursDiff:  1.5,
	}}, nil, discardLogger())

	body := `{"tenant_id":"t1","booking_id":"bk-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/cancel", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error != engine.CodeCancelWindowViolation || got.Limit != 3 || got.HoursDiff != 1.5 {
		t.Fatalf("body = %+v", got)
	}
}

func TestNoShow_RequiresIDs(t *testing.T) {
	h := NewBookingHandler(&fakeScheduler{}, nil, discardLogger())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/no-show", strings.NewReader(`{"tenant_id":"t1"}`))
	rec := httptest.NewRecorder()
	h.NoShow(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/bookings/no-show", strings.NewReader(`{"tenant_id":"t1","booking_id":"bk-1"}`))
	rec = httptest.NewRecorder()
	h.NoShow(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got bookingView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != model.StatusNoShow {
		t.Fatalf("status = %q, want no_show", got.Status)
	}
}

func TestSlots_QueryValidationAndShape(t *testing.T) {
	start := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	h := NewAvailabilityHandler(&fakeScheduler{slots: []engine.Slot{
		{ResourceID: "res-1", ResourceName: "Maria", StartsAt: start, EndsAt: start.Add(30 * time.Minute)},
	}}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?tenant_id=t1&service_id=svc-1", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?tenant_id=t1&service_id=svc-1&date=2026-03-02", nil)
	rec = httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var got struct {
		Slots []slotItem `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Slots) != 1 || got.Slots[0].StartsAt != "2026-03-02T13:00:00Z" || got.Slots[0].ResourceName != "Maria" {
		t.Fatalf("slots = %+v", got.Slots)
	}
}

func TestSlots_EmptyIsOKNotError(t *testing.T) {
	h := NewAvailabilityHandler(&fakeScheduler{}, discardLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?tenant_id=t1&service_id=svc-1&date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"slots":[]`) {
		t.Fatalf("body = %s, want empty slots array", rec.Body)
	}
}
