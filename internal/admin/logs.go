package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/hookgate/internal/storage"
)

type securityLogResponse struct {
	ID           uuid.UUID      `json:"id"`
	ProviderName string         `json:"provider_name"`
	EventType    string         `json:"event_type"`
	IPAddress    string         `json:"ip_address"`
	RequestID    *string        `json:"request_id"`
	Details      map[string]any `json:"details"`
	CreatedAt    time.Time      `json:"created_at"`
}

func toSecurityLogResponse(l storage.SecurityLog) securityLogResponse {
	return securityLogResponse{
		ID:           l.ID,
		ProviderName: l.ProviderName,
		EventType:    string(l.EventType),
		IPAddress:    l.IPAddress,
		RequestID:    l.RequestID,
		Details:      l.Details,
		CreatedAt:    l.CreatedAt,
	}
}

// logFilterFromQuery parses the shared filter parameters of the list and
// export endpoints. A malformed date is a client error.
func logFilterFromQuery(r *http.Request) (storage.SecurityLogFilter, error) {
	var filter storage.SecurityLogFilter
	q := r.URL.Query()

	if raw := q.Get("event_type"); raw != "" {
		eventType := storage.SecurityEventType(raw)
		filter.EventType = &eventType
	}
	if raw := q.Get("provider_name"); raw != "" {
		name := raw
		filter.ProviderName = &name
	}
	if raw := q.Get("date_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid date_from: %q", raw)
		}
		filter.DateFrom = &from
	}
	if raw := q.Get("date_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid date_to: %q", raw)
		}
		filter.DateTo = &to
	}
	return filter, nil
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := logFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = queryInt(r, "limit", 50)
	filter.Offset = queryInt(r, "offset", 0)

	logs, err := h.logs.List(r.Context(), filter)
	if err != nil {
		h.log.Error("security log list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]securityLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toSecurityLogResponse(l))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) logStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logs.Stats(r.Context())
	if err != nil {
		h.log.Error("security log stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	byType := make(map[string]int64, len(stats.ByType))
	for eventType, count := range stats.ByType {
		byType[string(eventType)] = count
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_events":   stats.Total,
		"events_by_type": byType,
	})
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "log_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid log id")
		return
	}

	log, err := h.logs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrSecurityLogNotFound) {
			respondError(w, http.StatusNotFound, "Security log not found")
			return
		}
		h.log.Error("security log get failed", "log_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toSecurityLogResponse(log))
}

// exportLogs streams every matching log row as CSV, newest first.
func (h *Handler) exportLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := logFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = -1 // no pagination on export

	logs, err := h.logs.List(r.Context(), filter)
	if err != nil {
		h.log.Error("security log export failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="security-logs.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Provider", "Event Type", "Client IP", "Request ID", "Created At"})
	for _, l := range logs {
		requestID := ""
		if l.RequestID != nil {
			requestID = *l.RequestID
		}
		_ = cw.Write([]string{
			l.ID.String(),
			l.ProviderName,
			string(l.EventType),
			l.IPAddress,
			requestID,
			l.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
}
