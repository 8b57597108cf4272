package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string  `json:"error"`
	Limit     int     `json:"limit,omitempty"`
	HoursDiff float64 `json:"hours_diff,omitempty"`
}

// writeEngineError maps the engine's typed errors onto the HTTP surface:
// not found 404, conflict 409, policy violation 422 (with limit/hours_diff
// for the UI), validation 400, anything else 500.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		notFound   *engine.NotFoundError
		conflict   *engine.ConflictError
		policy     *engine.PolicyViolationError
		validation *engine.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "time slot already booked"})
	case errors.As(err, &policy):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:     policy.Code,
			Limit:     policy.LimitHours,
			HoursDiff: policy.HoursDiff,
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Error()})
	default:
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

type bookingView struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	ServiceID     string `json:"service_id"`
	ResourceID    string `json:"resource_id,omitempty"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name,omitempty"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
}

func toBookingView(b model.Booking) bookingView {
	v := bookingView{
		ID:            b.ID,
		TenantID:      b.TenantID,
		ServiceID:     b.ServiceID,
		ResourceID:    b.ResourceID,
		CustomerPhone: b.CustomerPhone,
		CustomerName:  b.CustomerName,
		StartsAt:      b.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:        b.EndsAt.UTC().Format(time.RFC3339),
		Status:        b.Status,
		Notes:         b.Notes,
		CancelReason:  b.CancelReason,
	}
	if b.CancelledAt != nil {
		v.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return v
}
