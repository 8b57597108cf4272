package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/engine"
)

type AvailabilityHandler struct {
	engine Scheduler
	logger *slog.Logger
}

func NewAvailabilityHandler(eng Scheduler, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: eng, logger: logger}
}

type slotItem struct {
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	StartsAt     string `json:"starts_at"`
	EndsAt       string `json:"ends_at"`
}

// Slots answers GET ?tenant_id=&service_id=&date=. date is either a plain
// "2006-01-02" calendar date or an RFC3339 instant (local midnight). A closed
// or fully booked day is an empty list, not an error.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	tenantID := strings.TrimSpace(q.Get("tenant_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	rawDate := strings.TrimSpace(q.Get("date"))
	if tenantID == "" || serviceID == "" || rawDate == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id, service_id and date required"})
		return
	}

	date, err := parseDate(rawDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid date, want 2006-01-02 or RFC3339"})
		return
	}

	slots, err := h.engine.FindAvailableSlots(r.Context(), tenantID, serviceID, date)
	if err != nil {
		writeEngineError(w, h.logger, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, toSlotItem(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}

func toSlotItem(s engine.Slot) slotItem {
	return slotItem{
		ResourceID:   s.ResourceID,
		ResourceName: s.ResourceName,
		StartsAt:     s.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:       s.EndsAt.UTC().Format(time.RFC3339),
	}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		// Anchor at noon UTC so the instant lands on the same local calendar
		// day for any fixed offset; the engine normalizes to local midnight.
		return t.Add(12 * time.Hour), nil
	}
	return time.Parse(time.RFC3339, raw)
}
