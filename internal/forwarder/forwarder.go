package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hookgate/internal/metrics"
	"github.com/dmitrymomot/hookgate/internal/storage"
)

// ErrShutdownTimeout indicates in-flight deliveries outlived the grace
// period; their events stay pending and can be retried by an operator.
var ErrShutdownTimeout = errors.New("forwarder shutdown grace period expired")

// Config is the environment surface of the forwarder.
type Config struct {
	TimeoutSeconds int `env:"FORWARDING_TIMEOUT_SECONDS" envDefault:"10"` // TimeoutSeconds bounds each delivery attempt.
	MaxRetries     int `env:"FORWARDING_MAX_RETRIES" envDefault:"3"`      // MaxRetries is the total number of attempts for transient failures.
}

// Timeout returns the per-attempt deadline as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EventStore is the slice of storage the forwarder needs. The forwarder owns
// its store handle: its work outlives the request-scoped session that
// created the event.
type EventStore interface {
	UpdateForwardingStatus(ctx context.Context, eventID uuid.UUID, status storage.ForwardingStatus) error
}

// Job is one delivery order: the persisted event plus the destination
// captured at enqueue time.
type Job struct {
	EventID   uuid.UUID
	RequestID string
	Payload   json.RawMessage
	URL       string
}

// Option adjusts forwarder construction.
type Option func(*Forwarder)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout overrides the per-attempt deadline, mainly for tests that need
// sub-second timeouts.
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBaseDelay overrides the first backoff interval. Production keeps the
// 1s default; tests shrink it.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.baseDelay = d
		}
	}
}

// WithClock overrides the timestamp source for writebacks.
func WithClock(now func() time.Time) Option {
	return func(f *Forwarder) {
		if now != nil {
			f.now = now
		}
	}
}

// Forwarder posts payloads to provider destinations with bounded retry.
type Forwarder struct {
	client     *http.Client
	events     EventStore
	log        *slog.Logger
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	now        func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopping atomic.Bool
}

// New creates a forwarder. The HTTP client reuses connections across
// deliveries; per-attempt deadlines come from the configured timeout, not
// the client.
func New(events EventStore, cfg Config, log *slog.Logger, opts ...Option) *Forwarder {
	ctx, cancel := context.WithCancel(context.Background())

	f := &Forwarder{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		events:     events,
		log:        log,
		timeout:    cfg.Timeout(),
		maxRetries: cfg.MaxRetries,
		baseDelay:  time.Second,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if f.maxRetries <= 0 {
		f.maxRetries = 3
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enqueue starts a detached delivery for job. Jobs enqueued after Shutdown
// begins are dropped; the event stays pending for operator retry.
func (f *Forwarder) Enqueue(job Job) {
	if f.stopping.Load() {
		f.log.Warn("forwarder stopping, delivery dropped", "event_id", job.EventID)
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.deliver(f.ctx, job)
	}()
}

// Shutdown stops accepting jobs and waits for in-flight deliveries until ctx
// expires, then cancels them. A cancelled delivery's writeback is dropped;
// the event remains forwarded=false.
func (f *Forwarder) Shutdown(ctx context.Context) error {
	f.stopping.Store(true)

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.cancel()
		return nil
	case <-ctx.Done():
		f.cancel()
		return errors.Join(ErrShutdownTimeout, ctx.Err())
	}
}

// deliver runs the retry loop for one job and records the terminal outcome.
func (f *Forwarder) deliver(ctx context.Context, job Job) {
	var lastErr error

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			// 1s, 2s, 4s... doubling per attempt.
			delay := f.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				f.log.Warn("delivery cancelled during backoff", "event_id", job.EventID)
				return
			case <-time.After(delay):
			}
		}

		status, retryable, err := f.attempt(ctx, job)
		if err == nil {
			metrics.ForwardAttempts.WithLabelValues("success").Inc()
			f.writeback(ctx, job.EventID, status)
			return
		}
		if !retryable {
			metrics.ForwardAttempts.WithLabelValues("error").Inc()
			f.writeback(ctx, job.EventID, status)
			return
		}

		metrics.ForwardAttempts.WithLabelValues("retryable").Inc()
		lastErr = err
		f.log.Warn("delivery attempt failed",
			"event_id", job.EventID, "attempt", attempt+1, "max_attempts", f.maxRetries, "error", err)
	}

	// Retries exhausted.
	msg := fmt.Sprintf("failed after %d attempts: %v", f.maxRetries, lastErr)
	f.writeback(ctx, job.EventID, storage.ForwardingStatus{
		Forwarded:    false,
		ErrorMessage: &msg,
		ForwardedAt:  f.now(),
	})
}

// attempt makes one POST. It returns the writeback status for terminal
// outcomes, whether a failure is retryable, and the attempt error.
func (f *Forwarder) attempt(ctx context.Context, job Job) (storage.ForwardingStatus, bool, error) {
	u, err := url.ParseRequestURI(job.URL)
	if err == nil && (u.Scheme != "http" && u.Scheme != "https" || u.Host == "") {
		err = fmt.Errorf("unsupported url %q", job.URL)
	}
	if err != nil {
		msg := fmt.Sprintf("invalid forwarding url: %v", err)
		return storage.ForwardingStatus{
			Forwarded:    false,
			ErrorMessage: &msg,
			ForwardedAt:  f.now(),
		}, false, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, job.URL, bytes.NewReader(job.Payload))
	if err != nil {
		msg := fmt.Sprintf("invalid forwarding request: %v", err)
		return storage.ForwardingStatus{
			Forwarded:    false,
			ErrorMessage: &msg,
			ForwardedAt:  f.now(),
		}, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", job.EventID.String())
	req.Header.Set("X-Request-ID", job.RequestID)

	resp, err := f.client.Do(req)
	if err != nil {
		// Timeouts and transport errors back off like 5xx.
		return storage.ForwardingStatus{}, true, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Read slightly past the stored limit so truncation is observable.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	bodyStr := string(body)
	code := resp.StatusCode

	switch {
	case code >= 200 && code < 300:
		return storage.ForwardingStatus{
			Forwarded:      true,
			ResponseStatus: &code,
			ResponseBody:   &bodyStr,
			ForwardedAt:    f.now(),
		}, false, nil

	case code >= 400 && code < 500:
		// Client errors will not change on retry.
		msg := fmt.Sprintf("client error: %s", bodyStr)
		return storage.ForwardingStatus{
			Forwarded:      false,
			ResponseStatus: &code,
			ResponseBody:   &bodyStr,
			ErrorMessage:   &msg,
			ForwardedAt:    f.now(),
		}, false, fmt.Errorf("destination returned status %d", code)

	default:
		return storage.ForwardingStatus{}, true, fmt.Errorf("destination returned status %d", code)
	}
}

// writeback records the terminal status. Failures are logged only: the
// client already has its 202 and the admin plane surfaces stuck events.
func (f *Forwarder) writeback(ctx context.Context, eventID uuid.UUID, status storage.ForwardingStatus) {
	if err := f.events.UpdateForwardingStatus(ctx, eventID, status); err != nil {
		f.log.Error("forwarding status writeback failed", "event_id", eventID, "error", err)
	}
}
