package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/dmitrymomot/hookgate/internal/forwarder"
	"github.com/dmitrymomot/hookgate/internal/storage"
)

// ProviderStore is the provider repository surface the admin plane uses.
type ProviderStore interface {
	Create(ctx context.Context, arg storage.CreateProviderParams) (storage.Provider, error)
	GetByName(ctx context.Context, name string) (storage.Provider, error)
	GetByID(ctx context.Context, id uuid.UUID) (storage.Provider, error)
	List(ctx context.Context) ([]storage.Provider, error)
	Update(ctx context.Context, name string, arg storage.UpdateProviderParams) (storage.Provider, error)
	Delete(ctx context.Context, name string) error
}

// EventStore is the webhook event repository surface the admin plane uses.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (storage.WebhookEvent, error)
	List(ctx context.Context, filter storage.EventFilter) ([]storage.WebhookEvent, error)
	Stats(ctx context.Context, providerID *uuid.UUID) (storage.EventStats, error)
	ResetForwardingStatus(ctx context.Context, eventID uuid.UUID) error
}

// SecurityLogStore is the security log repository surface the admin plane
// uses.
type SecurityLogStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (storage.SecurityLog, error)
	List(ctx context.Context, filter storage.SecurityLogFilter) ([]storage.SecurityLog, error)
	Stats(ctx context.Context) (storage.SecurityLogStats, error)
}

// Enqueuer re-submits events to the forwarder for operator retries.
type Enqueuer interface {
	Enqueue(job forwarder.Job)
}

// Handler serves the admin plane.
type Handler struct {
	providers ProviderStore
	events    EventStore
	logs      SecurityLogStore
	forward   Enqueuer
	tokens    *TokenService
	cfg       Config
	log       *slog.Logger
}

func NewHandler(
	providers ProviderStore,
	events EventStore,
	logs SecurityLogStore,
	forward Enqueuer,
	tokens *TokenService,
	cfg Config,
	log *slog.Logger,
) *Handler {
	return &Handler{
		providers: providers,
		events:    events,
		logs:      logs,
		forward:   forward,
		tokens:    tokens,
		cfg:       cfg,
		log:       log,
	}
}

// Router mounts the admin routes. Everything except the token exchange is
// behind bearer auth.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/token", h.issueToken)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Route("/providers", func(r chi.Router) {
			r.Post("/", h.createProvider)
			r.Get("/", h.listProviders)
			r.Get("/{provider_name}", h.getProvider)
			r.Get("/{provider_name}/stats", h.providerStats)
			r.Put("/{provider_name}", h.updateProvider)
			r.Delete("/{provider_name}", h.deleteProvider)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", h.listWebhooks)
			r.Get("/stats", h.webhookStats)
			r.Get("/{webhook_id}", h.getWebhook)
			r.Post("/{webhook_id}/retry", h.retryWebhook)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.listLogs)
			r.Get("/stats", h.logStats)
			r.Get("/export", h.exportLogs)
			r.Get("/{log_id}", h.getLog)
		})
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
