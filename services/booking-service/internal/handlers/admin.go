package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/model"
	"github.com/JanselSanchez/bot-suite-sub000/services/booking-service/internal/storage"
)

// AdminHandler is the reference-data surface: services, resources, their
// links, business hours, exceptions and tenant settings. The scheduling
// engine only ever reads this data.
type AdminHandler struct {
	catalog  *storage.CatalogRepository
	calendar *storage.CalendarRepository
	settings *storage.SettingsRepository
	logger   *slog.Logger
}

func NewAdminHandler(catalog *storage.CatalogRepository, calendar *storage.CalendarRepository, settings *storage.SettingsRepository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, calendar: calendar, settings: settings, logger: logger}
}

func (h *AdminHandler) internalError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("admin request failed", "op", op, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func tenantFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("tenant_id")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
}

type createServiceRequest struct {
	TenantID       string `json:"tenant_id"`
	Name           string `json:"name"`
	DurationMin    int    `json:"duration_min"`
	BufferAfterMin int    `json:"buffer_after_min"`
}

func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
			return
		}
		req.TenantID = strings.TrimSpace(req.TenantID)
		req.Name = strings.TrimSpace(req.Name)
		if req.TenantID == "" || req.Name == "" || req.DurationMin <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id, name and positive duration_min required"})
			return
		}
		id, err := h.catalog.CreateService(r.Context(), req.TenantID, req.Name, req.DurationMin, req.BufferAfterMin)
		if err != nil {
			h.internalError(w, "create service", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	case http.MethodGet:
		tenantID := tenantFrom(r)
		if tenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}
		services, err := h.catalog.ListServices(r.Context(), tenantID, 0)
		if err != nil {
			h.internalError(w, "list services", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createResourceRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

func (h *AdminHandler) Resources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
			return
		}
		req.TenantID = strings.TrimSpace(req.TenantID)
		req.Name = strings.TrimSpace(req.Name)
		if req.TenantID == "" || req.Name == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id and name required"})
			return
		}
		id, err := h.catalog.CreateResource(r.Context(), req.TenantID, req.Name)
		if err != nil {
			h.internalError(w, "create resource", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	case http.MethodGet:
		tenantID := tenantFrom(r)
		if tenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}
		resources, err := h.catalog.ListResources(r.Context(), tenantID, 0)
		if err != nil {
			h.internalError(w, "list resources", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"resources": resources})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type linkRequest struct {
	TenantID   string `json:"tenant_id"`
	ServiceID  string `json:"service_id"`
	ResourceID string `json:"resource_id"`
}

func (h *AdminHandler) ServiceResources(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.ResourceID = strings.TrimSpace(req.ResourceID)
	if req.TenantID == "" || req.ServiceID == "" || req.ResourceID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id, service_id and resource_id required"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		if err := h.catalog.LinkServiceResource(r.Context(), req.TenantID, req.ServiceID, req.ResourceID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorBody{Error: "service or resource not found"})
				return
			}
			h.internalError(w, "link service resource", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})

	case http.MethodDelete:
		if err := h.catalog.UnlinkServiceResource(r.Context(), req.TenantID, req.ServiceID, req.ResourceID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorBody{Error: "link not found"})
				return
			}
			h.internalError(w, "unlink service resource", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type upsertHoursRequest struct {
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id"`
	Weekday    int    `json:"weekday"`
	OpenTime   string `json:"open_time"`
	CloseTime  string `json:"close_time"`
	IsClosed   bool   `json:"is_closed"`
}

func (h *AdminHandler) Hours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req upsertHoursRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
			return
		}
		req.TenantID = strings.TrimSpace(req.TenantID)
		if req.TenantID == "" || req.Weekday < 0 || req.Weekday > 6 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id and weekday 0..6 required"})
			return
		}
		hours := model.BusinessHours{
			TenantID:  req.TenantID,
			Weekday:   req.Weekday,
			OpenTime:  strings.TrimSpace(req.OpenTime),
			CloseTime: strings.TrimSpace(req.CloseTime),
			IsClosed:  req.IsClosed,
		}
		if resourceID := strings.TrimSpace(req.ResourceID); resourceID != "" {
			hours.ResourceID = &resourceID
		}
		if err := h.calendar.UpsertHours(r.Context(), hours); err != nil {
			h.internalError(w, "upsert hours", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case http.MethodGet:
		tenantID := tenantFrom(r)
		if tenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}
		hours, err := h.calendar.ListHours(r.Context(), tenantID)
		if err != nil {
			h.internalError(w, "list hours", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"hours": hours})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type createExceptionRequest struct {
	TenantID   string `json:"tenant_id"`
	ResourceID string `json:"resource_id"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	IsClosed   bool   `json:"is_closed"`
	Note       string `json:"note"`
}

func (h *AdminHandler) Exceptions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createExceptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
			return
		}
		req.TenantID = strings.TrimSpace(req.TenantID)
		if req.TenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}
		startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid starts_at, want RFC3339"})
			return
		}
		endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndsAt))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid ends_at, want RFC3339"})
			return
		}
		if !endsAt.After(startsAt) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "ends_at must be after starts_at"})
			return
		}
		ex := model.Exception{
			TenantID: req.TenantID,
			StartsAt: startsAt,
			EndsAt:   endsAt,
			IsClosed: req.IsClosed,
			Note:     strings.TrimSpace(req.Note),
		}
		if resourceID := strings.TrimSpace(req.ResourceID); resourceID != "" {
			ex.ResourceID = &resourceID
		}
		id, err := h.calendar.CreateException(r.Context(), ex)
		if err != nil {
			h.internalError(w, "create exception", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	case http.MethodGet:
		tenantID := tenantFrom(r)
		if tenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}
		now := time.Now().UTC()
		exceptions, err := h.calendar.ListExceptions(r.Context(), tenantID, now.AddDate(0, -1, 0), now.AddDate(1, 0, 0))
		if err != nil {
			h.internalError(w, "list exceptions", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exceptions": exceptions})

	case http.MethodDelete:
		tenantID := tenantFrom(r)
		exceptionID := strings.TrimSpace(r.URL.Query().Get("id"))
		if tenantID == "" || exceptionID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id and id required"})
			return
		}
		if err := h.calendar.DeleteException(r.Context(), tenantID, exceptionID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusNotFound, errorBody{Error: "exception not found"})
				return
			}
			h.internalError(w, "delete exception", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type settingsRequest struct {
	TenantID            string `json:"tenant_id"`
	CancelFreeHours     *int   `json:"cancel_free_hours"`
	UTCOffsetMinutes    *int   `json:"utc_offset_minutes"`
	MaxSlotsPerResource *int   `json:"max_slots_per_resource"`
	ReminderOffsetsMin  []int  `json:"reminder_offsets_min"`
	BrandName           string `json:"brand_name"`
}

func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tenantID := tenantFrom(r)
		if tenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}
		settings, err := h.settings.Get(r.Context(), tenantID)
		if err != nil {
			h.internalError(w, "get settings", err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	case http.MethodPut, http.MethodPost:
		var req settingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json body"})
			return
		}
		req.TenantID = strings.TrimSpace(req.TenantID)
		if req.TenantID == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "tenant_id required"})
			return
		}

		// Merge over current values so partial updates keep the rest intact.
		settings, err := h.settings.Get(r.Context(), req.TenantID)
		if err != nil {
			h.internalError(w, "get settings", err)
			return
		}
		if req.CancelFreeHours != nil {
			settings.CancelFreeHours = *req.CancelFreeHours
		}
		if req.UTCOffsetMinutes != nil {
			settings.UTCOffsetMinutes = *req.UTCOffsetMinutes
		}
		if req.MaxSlotsPerResource != nil {
			settings.MaxSlotsPerResource = *req.MaxSlotsPerResource
		}
		if req.ReminderOffsetsMin != nil {
			settings.ReminderOffsetsMin = req.ReminderOffsetsMin
		}
		if name := strings.TrimSpace(req.BrandName); name != "" {
			settings.BrandName = name
		}
		if err := h.settings.Upsert(r.Context(), settings); err != nil {
			h.internalError(w, "upsert settings", err)
			return
		}
		writeJSON(w, http.StatusOK, settings)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
