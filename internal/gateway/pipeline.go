package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hookgate/internal/forwarder"
	"github.com/dmitrymomot/hookgate/internal/metrics"
	"github.com/dmitrymomot/hookgate/internal/storage"
	"github.com/dmitrymomot/hookgate/pkg/ratelimit"
	"github.com/dmitrymomot/hookgate/pkg/replay"
	"github.com/dmitrymomot/hookgate/pkg/signature"
)

// maxRequestIDLen matches the request_id column width.
const maxRequestIDLen = 255

// Config is the ingestion tuning surface. The window variables are plain
// second counts on the wire, matching their names.
type Config struct {
	RateLimitMax           int   `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"100"`
	RateLimitWindowSeconds int   `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	ReplayWindowSeconds    int   `env:"REPLAY_PROTECTION_WINDOW_SECONDS" envDefault:"300"`
	MaxPayloadSize         int64 `env:"MAX_PAYLOAD_SIZE_BYTES" envDefault:"1000000"`
}

// RateLimitWindow returns the rate limit window as a duration.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// ReplayWindow returns the replay protection window as a duration.
func (c Config) ReplayWindow() time.Duration {
	return time.Duration(c.ReplayWindowSeconds) * time.Second
}

// Providers is the provider lookup the pipeline needs.
type Providers interface {
	GetByName(ctx context.Context, name string) (storage.Provider, error)
}

// Events is the audit insert the pipeline needs.
type Events interface {
	Insert(ctx context.Context, arg storage.InsertEventParams) (storage.WebhookEvent, error)
}

// Limiter admits or denies one request per provider window.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// ReplayStore claims request IDs for the replay window.
type ReplayStore interface {
	Claim(ctx context.Context, providerName, requestID string, ttl time.Duration) (replay.Result, error)
}

// Enqueuer hands accepted events to the forwarder.
type Enqueuer interface {
	Enqueue(job forwarder.Job)
}

// IngestRequest is one inbound webhook after HTTP decoding. Body holds the
// exact bytes received; the signature is verified over these, never over a
// re-serialized form.
type IngestRequest struct {
	ProviderName string
	Body         []byte
	Signature    string
	Timestamp    string
	RequestID    string
	Headers      map[string]string
	ClientIP     string
}

// Accepted is the successful pipeline outcome.
type Accepted struct {
	WebhookID uuid.UUID
}

// PipelineOption adjusts pipeline construction.
type PipelineOption func(*Pipeline)

// WithClock overrides the timestamp source, mainly for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline runs the ingestion sequence for one webhook at a time. Instances
// are safe for concurrent use; all per-request state is local to Ingest.
type Pipeline struct {
	providers Providers
	events    Events
	limiter   Limiter
	replays   ReplayStore
	forward   Enqueuer
	seclog    *SecurityLogger
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

func NewPipeline(
	providers Providers,
	events Events,
	limiter Limiter,
	replays ReplayStore,
	forward Enqueuer,
	seclog *SecurityLogger,
	cfg Config,
	log *slog.Logger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		providers: providers,
		events:    events,
		limiter:   limiter,
		replays:   replays,
		forward:   forward,
		seclog:    seclog,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest runs the full ingestion sequence. A *Reject return carries the HTTP
// status and client message for a refused webhook; any other error is an
// internal failure.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (Accepted, error) {
	// RECEIVED: required headers.
	if req.Signature == "" || req.Timestamp == "" {
		return p.reject("missing_header", &Reject{
			Status: http.StatusBadRequest,
			Detail: "Missing X-Signature or X-Timestamp header",
		})
	}
	if req.RequestID == "" {
		return p.reject("missing_header", &Reject{
			Status: http.StatusBadRequest,
			Detail: "Missing X-Request-ID header",
		})
	}
	if len(req.RequestID) > maxRequestIDLen {
		return p.reject("missing_header", &Reject{
			Status: http.StatusBadRequest,
			Detail: "X-Request-ID exceeds 255 characters",
		})
	}

	// LOOKUP_PROVIDER: missing and inactive are indistinguishable to the
	// caller.
	provider, err := p.providers.GetByName(ctx, req.ProviderName)
	if err != nil {
		if errors.Is(err, storage.ErrProviderNotFound) {
			return p.reject("unknown_provider", &Reject{
				Status: http.StatusNotFound,
				Detail: fmt.Sprintf("Provider '%s' not found", req.ProviderName),
			})
		}
		return Accepted{}, fmt.Errorf("provider lookup: %w", err)
	}
	if !provider.IsActive {
		return p.reject("unknown_provider", &Reject{
			Status: http.StatusNotFound,
			Detail: fmt.Sprintf("Provider '%s' not found", req.ProviderName),
		})
	}

	// RATE_LIMIT: keyed on provider id, fails open on store outage.
	res, err := p.limiter.Allow(ctx, provider.ID.String())
	if err != nil {
		p.log.Warn("rate limit store unavailable, admitting request",
			"provider", req.ProviderName, "error", err)
	}
	if !res.Allowed {
		resetIn := int(res.ResetIn.Seconds())
		p.seclog.Record(ctx, req.ProviderName, storage.EventRateLimitExceeded, req.ClientIP, req.RequestID,
			map[string]any{"limit": res.Limit, "reset_at": resetIn})
		return p.reject("rate_limited", &Reject{
			Status: http.StatusTooManyRequests,
			Detail: fmt.Sprintf("Rate limit exceeded. Reset in %d seconds", resetIn),
		})
	}

	// AUTHENTICATE: HMAC over the raw body bytes.
	if !signature.Verify(req.Body, []byte(provider.SecretKey), req.Signature) {
		p.seclog.Record(ctx, req.ProviderName, storage.EventInvalidSignature, req.ClientIP, req.RequestID,
			map[string]any{"signature": truncateSignature(req.Signature)})
		return p.reject("invalid_signature", &Reject{
			Status: http.StatusUnauthorized,
			Detail: "Invalid webhook signature",
		})
	}

	// TIMESTAMP_CHECK: ISO-8601 with offset, compared in the sender's zone.
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		p.seclog.Record(ctx, req.ProviderName, storage.EventInvalidTimestamp, req.ClientIP, req.RequestID,
			map[string]any{"timestamp": req.Timestamp})
		return p.reject("invalid_timestamp", &Reject{
			Status: http.StatusBadRequest,
			Detail: "Invalid timestamp format",
		})
	}
	timeDiff := p.now().Sub(ts).Seconds()
	if timeDiff > p.cfg.ReplayWindow().Seconds() {
		p.seclog.Record(ctx, req.ProviderName, storage.EventTimestampTooOld, req.ClientIP, req.RequestID,
			map[string]any{"time_diff": timeDiff, "max_allowed": p.cfg.ReplayWindow().Seconds()})
		return p.reject("timestamp_too_old", &Reject{
			Status: http.StatusBadRequest,
			Detail: "Webhook timestamp too old (replay protection)",
		})
	}
	if timeDiff < 0 {
		p.seclog.Record(ctx, req.ProviderName, storage.EventTimestampInFuture, req.ClientIP, req.RequestID,
			map[string]any{"time_diff": timeDiff})
		return p.reject("timestamp_in_future", &Reject{
			Status: http.StatusBadRequest,
			Detail: "Webhook timestamp is in the future",
		})
	}

	// REPLAY_CLAIM: a store outage reads as replay (fail closed).
	claim, err := p.replays.Claim(ctx, req.ProviderName, req.RequestID, p.cfg.ReplayWindow())
	if err != nil {
		p.log.Error("replay store claim failed, rejecting request",
			"provider", req.ProviderName, "request_id", req.RequestID, "error", err)
	}
	if claim != replay.ResultFresh {
		p.seclog.Record(ctx, req.ProviderName, storage.EventReplayAttempt, req.ClientIP, req.RequestID,
			map[string]any{"replay_key": replay.Key(req.ProviderName, req.RequestID)})
		return p.reject("replay", &Reject{
			Status: http.StatusConflict,
			Detail: "Webhook already processed (replay detected)",
		})
	}

	// PARSE_JSON: malformed payloads are a client error, not a security
	// event.
	if !json.Valid(req.Body) {
		return p.reject("invalid_json", &Reject{
			Status: http.StatusBadRequest,
			Detail: "Invalid JSON payload",
		})
	}

	// PERSIST: the unique constraint on request_id is the last line of
	// defense when the replay store lost its state.
	event, err := p.events.Insert(ctx, storage.InsertEventParams{
		ProviderID: provider.ID,
		RequestID:  req.RequestID,
		Payload:    json.RawMessage(req.Body),
		Headers:    req.Headers,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateRequestID) {
			p.seclog.Record(ctx, req.ProviderName, storage.EventReplayAttempt, req.ClientIP, req.RequestID,
				map[string]any{"replay_key": replay.Key(req.ProviderName, req.RequestID)})
			return p.reject("replay", &Reject{
				Status: http.StatusConflict,
				Detail: "Webhook already processed (replay detected)",
			})
		}
		return Accepted{}, fmt.Errorf("persist webhook event: %w", err)
	}

	// ENQUEUE_FORWARD: detached; the client is acknowledged regardless of
	// delivery outcome.
	p.forward.Enqueue(forwarder.Job{
		EventID:   event.ID,
		RequestID: event.RequestID,
		Payload:   event.Payload,
		URL:       provider.ForwardingURL,
	})

	metrics.Ingested.WithLabelValues(req.ProviderName).Inc()
	return Accepted{WebhookID: event.ID}, nil
}

func (p *Pipeline) reject(reason string, r *Reject) (Accepted, error) {
	metrics.Rejected.WithLabelValues(reason).Inc()
	return Accepted{}, r
}

// truncateSignature bounds the signature echoed into security log details.
func truncateSignature(sig string) string {
	if len(sig) > 20 {
		sig = sig[:20]
	}
	return sig + "..."
}
