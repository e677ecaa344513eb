package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/hookgate/pkg/clientip"
)

// Handler is the HTTP edge of the ingestion pipeline.
type Handler struct {
	pipeline *Pipeline
	maxBody  int64
	log      *slog.Logger
}

func NewHandler(pipeline *Pipeline, maxBody int64, log *slog.Logger) *Handler {
	if maxBody <= 0 {
		maxBody = 1_000_000
	}
	return &Handler{pipeline: pipeline, maxBody: maxBody, log: log}
}

// Router mounts the ingestion endpoint: POST /{provider_name}.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/{provider_name}", h.receive)
	return r
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	// The raw bytes are captured once and used verbatim for the HMAC.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"detail": "Payload too large"})
			return
		}
		respondJSON(w, http.StatusBadRequest, map[string]any{"detail": "Failed to read request body"})
		return
	}

	req := IngestRequest{
		ProviderName: chi.URLParam(r, "provider_name"),
		Body:         body,
		Signature:    r.Header.Get("X-Signature"),
		Timestamp:    r.Header.Get("X-Timestamp"),
		RequestID:    r.Header.Get("X-Request-ID"),
		Headers:      flattenHeaders(r.Header),
		ClientIP:     clientip.GetIP(r),
	}

	accepted, err := h.pipeline.Ingest(r.Context(), req)
	if err != nil {
		var rej *Reject
		if errors.As(err, &rej) {
			respondJSON(w, rej.Status, map[string]any{"detail": rej.Detail})
			return
		}
		h.log.Error("webhook ingestion failed",
			"provider", req.ProviderName, "request_id", req.RequestID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"detail": "Internal server error"})
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"status":     "accepted",
		"message":    "Webhook received and queued for processing",
		"webhook_id": accepted.WebhookID.String(),
	})
}

// flattenHeaders normalizes the inbound header map for persistence:
// lowercase names, first value only.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) > 0 {
			out[strings.ToLower(name)] = values[0]
		}
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
