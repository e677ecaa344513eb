package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/hookgate/internal/forwarder"
	"github.com/dmitrymomot/hookgate/internal/storage"
)

type webhookEventResponse struct {
	ID             uuid.UUID         `json:"id"`
	ProviderID     uuid.UUID         `json:"provider_id"`
	RequestID      string            `json:"request_id"`
	Payload        json.RawMessage   `json:"payload"`
	Headers        map[string]string `json:"headers"`
	SignatureValid bool              `json:"signature_valid"`
	Forwarded      bool              `json:"forwarded"`
	ResponseStatus *int              `json:"response_status"`
	ResponseBody   *string           `json:"response_body"`
	ErrorMessage   *string           `json:"error_message"`
	ReceivedAt     time.Time         `json:"received_at"`
	ForwardedAt    *time.Time        `json:"forwarded_at"`
}

func toWebhookEventResponse(e storage.WebhookEvent) webhookEventResponse {
	return webhookEventResponse{
		ID:             e.ID,
		ProviderID:     e.ProviderID,
		RequestID:      e.RequestID,
		Payload:        e.Payload,
		Headers:        e.Headers,
		SignatureValid: e.SignatureValid,
		Forwarded:      e.Forwarded,
		ResponseStatus: e.ResponseStatus,
		ResponseBody:   e.ResponseBody,
		ErrorMessage:   e.ErrorMessage,
		ReceivedAt:     e.ReceivedAt,
		ForwardedAt:    e.ForwardedAt,
	}
}

// resolveProviderFilter turns an optional provider_name query parameter into
// a provider id filter. A named but unknown provider is a 404.
func (h *Handler) resolveProviderFilter(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	name := r.URL.Query().Get("provider_name")
	if name == "" {
		return nil, true
	}
	provider, err := h.providers.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("Provider '%s' not found", name))
			return nil, false
		}
		h.log.Error("provider get failed", "name", name, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	return &provider.ID, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func (h *Handler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.resolveProviderFilter(w, r)
	if !ok {
		return
	}

	events, err := h.events.List(r.Context(), storage.EventFilter{
		ProviderID: providerID,
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		h.log.Error("webhook list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]webhookEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toWebhookEventResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) webhookStats(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.resolveProviderFilter(w, r)
	if !ok {
		return
	}

	stats, err := h.events.Stats(r.Context(), providerID)
	if err != nil {
		h.log.Error("webhook stats failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{
		"total":      stats.Total,
		"successful": stats.Successful,
		"failed":     stats.Failed,
		"pending":    stats.Pending,
	})
}

func (h *Handler) getWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "webhook_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid webhook id")
		return
	}

	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			respondError(w, http.StatusNotFound, "Webhook event not found")
			return
		}
		h.log.Error("webhook get failed", "webhook_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toWebhookEventResponse(event))
}

// retryWebhook clears the forwarding outcome of an event and re-enqueues it
// with the provider's current forwarding URL.
func (h *Handler) retryWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "webhook_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid webhook id")
		return
	}

	event, err := h.events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			respondError(w, http.StatusNotFound, "Webhook event not found")
			return
		}
		h.log.Error("webhook get failed", "webhook_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	provider, err := h.providers.GetByID(r.Context(), event.ProviderID)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			respondError(w, http.StatusNotFound, "Provider for this webhook no longer exists")
			return
		}
		h.log.Error("provider get failed", "provider_id", event.ProviderID, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.events.ResetForwardingStatus(r.Context(), event.ID); err != nil {
		h.log.Error("forwarding status reset failed", "webhook_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.forward.Enqueue(forwarder.Job{
		EventID:   event.ID,
		RequestID: event.RequestID,
		Payload:   event.Payload,
		URL:       provider.ForwardingURL,
	})

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":     "accepted",
		"message":    "Webhook queued for retry",
		"webhook_id": event.ID.String(),
	})
}
