package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/storage"
)

// Scheduler is the slice of the engine the HTTP layer calls.
type Scheduler interface {
	FindAvailableSlots(ctx context.Context, tenantID, serviceID string, date time.Time) ([]engine.Slot, error)
	Create(ctx context.Context, p engine.CreateParams) (*model.Booking, error)
	Reschedule(ctx context.Context, tenantID, bookingID string, newStart time.Time) (*model.Booking, error)
	Cancel(ctx context.Context, tenantID, bookingID, reason string, force bool) (*model.Booking, error)
	MarkNoShow(ctx context.Context, tenantID, bookingID string) (*model.Booking, error)
	Get(ctx context.Context, tenantID, bookingID string) (*model.Booking, error)
}

type BookingHandler struct {
	engine Scheduler
	store  *storage.BookingStore
	logger *slog.Logger
}

func NewBookingHandler(eng Scheduler, store *storage.BookingStore, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: eng, store: store, logger: logger}
}

type createBookingRequest struct {
	TenantID      string `json:"tenant_id"`
	ServiceID     string `json:"service_id"`
	ResourceID    string `json:"resource_id"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name"`
	StartsAt      string `json:"starts_at"`
	Notes         string `json:"notes"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid starts_at, want RFC3339"})
		return
	}

	b, err := h.engine.Create(r.Context(), engine.CreateParams{
		TenantID:      strings.TrimSpace(req.TenantID),
		ServiceID:     strings.TrimSpace(req.ServiceID),
		ResourceID:    strings.TrimSpace(req.ResourceID),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		StartsAt:      startsAt,
		Notes:         strings.TrimSpace(req.Notes),
	})
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingView(*b))
}

type rescheduleRequest struct {
	TenantID  string `json:"tenant_id"`
	BookingID string `json:"booking_id"`
	StartsAt  string `json:"starts_at"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.TenantID) == "" || strings.TrimSpace(req.BookingID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id and booking_id required"})
		return
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid starts_at, want RFC3339"})
		return
	}

	b, err := h.engine.Reschedule(r.Context(), strings.TrimSpace(req.TenantID), strings.TrimSpace(req.BookingID), startsAt)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(*b))
}

type cancelRequest struct {
	TenantID  string `json:"tenant_id"`
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
	Force     bool   `json:"force"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.TenantID) == "" || strings.TrimSpace(req.BookingID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id and booking_id required"})
		return
	}

	b, err := h.engine.Cancel(r.Context(), strings.TrimSpace(req.TenantID), strings.TrimSpace(req.BookingID), strings.TrimSpace(req.Reason), req.Force)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(*b))
}

type noShowRequest struct {
	TenantID  string `json:"tenant_id"`
	BookingID string `json:"booking_id"`
}

func (h *BookingHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req noShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.TenantID) == "" || strings.TrimSpace(req.BookingID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id and booking_id required"})
		return
	}

	b, err := h.engine.MarkNoShow(r.Context(), strings.TrimSpace(req.TenantID), strings.TrimSpace(req.BookingID))
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingView(*b))
}

// List returns the tenant's bookings starting inside [from, to). Defaults to
// the next 30 days when the range is absent.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
		return
	}

	now := time.Now().UTC()
	from, to := now.AddDate(0, 0, -1), now.AddDate(0, 0, 30)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid from, want RFC3339"})
			return
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid to, want RFC3339"})
			return
		}
		to = t
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	bookings, err := h.store.ListBookings(r.Context(), tenantID, from, to, limit)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}
	items := make([]bookingView, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": items})
}
