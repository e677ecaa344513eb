package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/hookgate/internal/storage"
)

// providerResponse is the wire shape of a provider. It deliberately has no
// secret_key field: the secret is write-only through the API.
type providerResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ForwardingURL string    `json:"forwarding_url"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toProviderResponse(p storage.Provider) providerResponse {
	return providerResponse{
		ID:            p.ID,
		Name:          p.Name,
		ForwardingURL: p.ForwardingURL,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type createProviderRequest struct {
	Name          string `json:"name"`
	SecretKey     string `json:"secret_key"`
	ForwardingURL string `json:"forwarding_url"`
}

func (h *Handler) createProvider(w http.ResponseWriter, r *http.Request) {
	var req createProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.SecretKey == "" || req.ForwardingURL == "" {
		respondError(w, http.StatusBadRequest, "name, secret_key and forwarding_url are required")
		return
	}

	provider, err := h.providers.Create(r.Context(), storage.CreateProviderParams{
		Name:          req.Name,
		SecretKey:     req.SecretKey,
		ForwardingURL: req.ForwardingURL,
	})
	if err != nil {
		if errors.Is(err, storage.ErrProviderExists) {
			respondError(w, http.StatusConflict, fmt.Sprintf("Provider '%s' already exists", req.Name))
			return
		}
		h.log.Error("provider create failed", "name", req.Name, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, toProviderResponse(provider))
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.providers.List(r.Context())
	if err != nil {
		h.log.Error("provider list failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		out = append(out, toProviderResponse(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getProvider(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider_name")
	provider, err := h.providers.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("Provider '%s' not found", name))
			return
		}
		h.log.Error("provider get failed", "name", name, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toProviderResponse(provider))
}

func (h *Handler) providerStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider_name")
	provider, err := h.providers.GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("Provider '%s' not found", name))
			return
		}
		h.log.Error("provider get failed", "name", name, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	stats, err := h.events.Stats(r.Context(), &provider.ID)
	if err != nil {
		h.log.Error("provider stats failed", "name", name, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{
		"total_webhooks":      stats.Total,
		"successful_webhooks": stats.Successful,
		"failed_webhooks":     stats.Failed,
		"pending_webhooks":    stats.Pending,
	})
}

type updateProviderRequest struct {
	SecretKey     *string `json:"secret_key"`
	ForwardingURL *string `json:"forwarding_url"`
	IsActive      *bool   `json:"is_active"`
}

func (h *Handler) updateProvider(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider_name")

	var req updateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	provider, err := h.providers.Update(r.Context(), name, storage.UpdateProviderParams{
		SecretKey:     req.SecretKey,
		ForwardingURL: req.ForwardingURL,
		IsActive:      req.IsActive,
	})
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("Provider '%s' not found", name))
			return
		}
		h.log.Error("provider update failed", "name", name, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toProviderResponse(provider))
}

func (h *Handler) deleteProvider(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider_name")
	if err := h.providers.Delete(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, storage.ErrProviderNotFound):
			respondError(w, http.StatusNotFound, fmt.Sprintf("Provider '%s' not found", name))
		case errors.Is(err, storage.ErrProviderInUse):
			respondError(w, http.StatusConflict, fmt.Sprintf("Provider '%s' has webhook events and cannot be deleted", name))
		default:
			h.log.Error("provider delete failed", "name", name, "error", err)
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
