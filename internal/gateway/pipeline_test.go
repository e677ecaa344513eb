package gateway_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hookgate/internal/forwarder"
	"github.com/dmitrymomot/hookgate/internal/gateway"
	"github.com/dmitrymomot/hookgate/internal/storage"
	"github.com/dmitrymomot/hookgate/pkg/ratelimit"
	"github.com/dmitrymomot/hookgate/pkg/replay"
	"github.com/dmitrymomot/hookgate/pkg/signature"
)

type fakeProviders struct {
	byName map[string]storage.Provider
}

func (f *fakeProviders) GetByName(ctx context.Context, name string) (storage.Provider, error) {
	p, ok := f.byName[name]
	if !ok {
		return storage.Provider{}, storage.ErrProviderNotFound
	}
	return p, nil
}

type fakeEvents struct {
	mu       sync.Mutex
	inserted []storage.InsertEventParams
	err      error
}

func (f *fakeEvents) Insert(ctx context.Context, arg storage.InsertEventParams) (storage.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.WebhookEvent{}, f.err
	}
	f.inserted = append(f.inserted, arg)
	return storage.WebhookEvent{
		ID:             uuid.New(),
		ProviderID:     arg.ProviderID,
		RequestID:      arg.RequestID,
		Payload:        arg.Payload,
		Headers:        arg.Headers,
		SignatureValid: true,
		ReceivedAt:     time.Now(),
	}, nil
}

func (f *fakeEvents) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeLimiter struct {
	res ratelimit.Result
	err error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (ratelimit.Result, error) {
	return f.res, f.err
}

type fakeReplay struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (f *fakeReplay) Claim(ctx context.Context, providerName, requestID string, ttl time.Duration) (replay.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return replay.ResultReplay, f.err
	}
	key := replay.Key(providerName, requestID)
	if f.claimed[key] {
		return replay.ResultReplay, nil
	}
	if f.claimed == nil {
		f.claimed = make(map[string]bool)
	}
	f.claimed[key] = true
	return replay.ResultFresh, nil
}

type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []forwarder.Job
}

func (f *fakeEnqueuer) Enqueue(job forwarder.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type fakeSecurityLogs struct {
	mu   sync.Mutex
	rows []storage.InsertSecurityLogParams
}

func (f *fakeSecurityLogs) Insert(ctx context.Context, arg storage.InsertSecurityLogParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, arg)
	return nil
}

func (f *fakeSecurityLogs) single(t *testing.T) storage.InsertSecurityLogParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.rows, 1)
	return f.rows[0]
}

type pipelineFixture struct {
	pipeline  *gateway.Pipeline
	providers *fakeProviders
	events    *fakeEvents
	limiter   *fakeLimiter
	replays   *fakeReplay
	forward   *fakeEnqueuer
	seclogs   *fakeSecurityLogs
	provider  storage.Provider
	now       time.Time
}

const testSecret = "whsec_test"

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	provider := storage.Provider{
		ID:            uuid.New(),
		Name:          "stripe",
		SecretKey:     testSecret,
		ForwardingURL: "http://internal.example.com/hooks",
		IsActive:      true,
	}

	f := &pipelineFixture{
		providers: &fakeProviders{byName: map[string]storage.Provider{"stripe": provider}},
		events:    &fakeEvents{},
		limiter:   &fakeLimiter{res: ratelimit.Result{Allowed: true, Limit: 100, Remaining: 99, ResetIn: 60 * time.Second}},
		replays:   &fakeReplay{},
		forward:   &fakeEnqueuer{},
		seclogs:   &fakeSecurityLogs{},
		provider:  provider,
		now:       now,
	}
	f.pipeline = gateway.NewPipeline(
		f.providers, f.events, f.limiter, f.replays, f.forward,
		gateway.NewSecurityLogger(f.seclogs, slog.New(slog.DiscardHandler)),
		gateway.Config{
			RateLimitMax:           100,
			RateLimitWindowSeconds: 60,
			ReplayWindowSeconds:    300,
			MaxPayloadSize:         1_000_000,
		},
		slog.New(slog.DiscardHandler),
		gateway.WithClock(func() time.Time { return now }),
	)
	return f
}

// validRequest builds a correctly signed request for the fixture provider.
func (f *pipelineFixture) validRequest() gateway.IngestRequest {
	body := []byte(`{"event":"x"}`)
	return gateway.IngestRequest{
		ProviderName: "stripe",
		Body:         body,
		Signature:    signature.Compute(body, []byte(testSecret)),
		Timestamp:    f.now.Format(time.RFC3339),
		RequestID:    "req-1",
		Headers:      map[string]string{"x-request-id": "req-1"},
		ClientIP:     "203.0.113.7",
	}
}

func requireReject(t *testing.T, err error, status int) *gateway.Reject {
	t.Helper()
	var rej *gateway.Reject
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, status, rej.Status)
	return rej
}

func TestIngest_Accepted(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	accepted, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, accepted.WebhookID)

	require.Equal(t, 1, f.events.count())
	inserted := f.events.inserted[0]
	assert.Equal(t, f.provider.ID, inserted.ProviderID)
	assert.Equal(t, "req-1", inserted.RequestID)
	assert.JSONEq(t, `{"event":"x"}`, string(inserted.Payload))
	assert.Equal(t, "req-1", inserted.Headers["x-request-id"])

	require.Equal(t, 1, f.forward.count())
	job := f.forward.jobs[0]
	assert.Equal(t, "req-1", job.RequestID)
	assert.Equal(t, f.provider.ForwardingURL, job.URL)

	assert.Empty(t, f.seclogs.rows, "accepted webhooks are not security events")
}

func TestIngest_MissingHeaders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*gateway.IngestRequest)
		detail string
	}{
		{"no signature", func(r *gateway.IngestRequest) { r.Signature = "" }, "Missing X-Signature or X-Timestamp header"},
		{"no timestamp", func(r *gateway.IngestRequest) { r.Timestamp = "" }, "Missing X-Signature or X-Timestamp header"},
		{"no request id", func(r *gateway.IngestRequest) { r.RequestID = "" }, "Missing X-Request-ID header"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newPipelineFixture(t)
			req := f.validRequest()
			tc.mutate(&req)

			_, err := f.pipeline.Ingest(context.Background(), req)
			rej := requireReject(t, err, http.StatusBadRequest)
			assert.Equal(t, tc.detail, rej.Detail)
			assert.Zero(t, f.events.count())
			assert.Empty(t, f.seclogs.rows)
		})
	}
}

func TestIngest_RequestIDTooLong(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()
	req.RequestID = string(make([]byte, 256))

	_, err := f.pipeline.Ingest(context.Background(), req)
	requireReject(t, err, http.StatusBadRequest)
}

func TestIngest_UnknownProvider(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()
	req.ProviderName = "github"

	_, err := f.pipeline.Ingest(context.Background(), req)
	rej := requireReject(t, err, http.StatusNotFound)
	assert.Equal(t, "Provider 'github' not found", rej.Detail)
	assert.Empty(t, f.seclogs.rows, "unknown provider is not a security event")
}

func TestIngest_InactiveProviderLooksMissing(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	inactive := f.provider
	inactive.IsActive = false
	f.providers.byName["stripe"] = inactive

	_, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	rej := requireReject(t, err, http.StatusNotFound)
	assert.Equal(t, "Provider 'stripe' not found", rej.Detail)
}

func TestIngest_RateLimited(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.limiter.res = ratelimit.Result{Allowed: false, Limit: 100, Remaining: 0, ResetIn: 30 * time.Second}

	_, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	rej := requireReject(t, err, http.StatusTooManyRequests)
	assert.Equal(t, "Rate limit exceeded. Reset in 30 seconds", rej.Detail)

	row := f.seclogs.single(t)
	assert.Equal(t, storage.EventRateLimitExceeded, row.EventType)
	assert.Equal(t, "stripe", row.ProviderName)
	assert.Equal(t, "203.0.113.7", row.IPAddress)
	assert.Equal(t, 100, row.Details["limit"])
	assert.Equal(t, 30, row.Details["reset_at"])
}

func TestIngest_RateLimitStoreOutageAdmits(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.limiter.res = ratelimit.Result{Allowed: true, Limit: 100, Remaining: 100, ResetIn: time.Minute}
	f.limiter.err = errors.Join(ratelimit.ErrStoreUnavailable, errors.New("connection refused"))

	_, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	require.NoError(t, err, "rate limiting fails open")
	assert.Equal(t, 1, f.events.count())
}

func TestIngest_InvalidSignature(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()
	req.Signature = "deadbeef"

	_, err := f.pipeline.Ingest(context.Background(), req)
	rej := requireReject(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid webhook signature", rej.Detail)
	assert.Zero(t, f.events.count())
	assert.Zero(t, f.forward.count())

	row := f.seclogs.single(t)
	assert.Equal(t, storage.EventInvalidSignature, row.EventType)
	assert.Equal(t, "deadbeef...", row.Details["signature"])
}

func TestIngest_SignatureOverExactBytes(t *testing.T) {
	t.Parallel()

	// Signature computed over re-ordered (semantically equal) JSON must not
	// verify: the HMAC covers the exact received bytes.
	f := newPipelineFixture(t)
	req := f.validRequest()
	req.Body = []byte(`{"a":1,"b":2}`)
	req.Signature = signature.Compute([]byte(`{"b":2,"a":1}`), []byte(testSecret))

	_, err := f.pipeline.Ingest(context.Background(), req)
	requireReject(t, err, http.StatusUnauthorized)
}

func TestIngest_TimestampChecks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		timestamp func(now time.Time) string
		detail    string
		eventType storage.SecurityEventType
	}{
		{
			"unparseable",
			func(now time.Time) string { return "yesterday" },
			"Invalid timestamp format",
			storage.EventInvalidTimestamp,
		},
		{
			"too old",
			func(now time.Time) string { return now.Add(-time.Hour).Format(time.RFC3339) },
			"Webhook timestamp too old (replay protection)",
			storage.EventTimestampTooOld,
		},
		{
			"in the future",
			func(now time.Time) string { return now.Add(2 * time.Minute).Format(time.RFC3339) },
			"Webhook timestamp is in the future",
			storage.EventTimestampInFuture,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newPipelineFixture(t)
			req := f.validRequest()
			req.Timestamp = tc.timestamp(f.now)

			_, err := f.pipeline.Ingest(context.Background(), req)
			rej := requireReject(t, err, http.StatusBadRequest)
			assert.Equal(t, tc.detail, rej.Detail)
			assert.Zero(t, f.events.count())

			row := f.seclogs.single(t)
			assert.Equal(t, tc.eventType, row.EventType)
		})
	}
}

func TestIngest_StaleTimestampDetails(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()
	req.Timestamp = f.now.Add(-3600 * time.Second).Format(time.RFC3339)

	_, err := f.pipeline.Ingest(context.Background(), req)
	requireReject(t, err, http.StatusBadRequest)

	row := f.seclogs.single(t)
	assert.Equal(t, storage.EventTimestampTooOld, row.EventType)
	assert.InDelta(t, 3600, row.Details["time_diff"], 1)
	assert.InDelta(t, 300, row.Details["max_allowed"], 0.1)
}

func TestIngest_OffsetTimestampAccepted(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()
	req.Timestamp = f.now.In(time.FixedZone("CEST", 2*3600)).Format(time.RFC3339)

	_, err := f.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err, "non-UTC offsets denote the same instant")
}

func TestIngest_Replay(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()

	_, err := f.pipeline.Ingest(context.Background(), req)
	require.NoError(t, err)

	_, err = f.pipeline.Ingest(context.Background(), req)
	rej := requireReject(t, err, http.StatusConflict)
	assert.Equal(t, "Webhook already processed (replay detected)", rej.Detail)
	assert.Equal(t, 1, f.events.count(), "replay must not persist a second event")

	row := f.seclogs.single(t)
	assert.Equal(t, storage.EventReplayAttempt, row.EventType)
	assert.Equal(t, "webhook:stripe:req-1", row.Details["replay_key"])
}

func TestIngest_ReplayStoreOutageRejects(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.replays.err = errors.Join(replay.ErrStoreUnavailable, errors.New("connection refused"))

	_, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	requireReject(t, err, http.StatusConflict)
	assert.Zero(t, f.events.count(), "replay protection fails closed")
}

func TestIngest_InvalidJSON(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	req := f.validRequest()
	req.Body = []byte(`{"event":`)
	req.Signature = signature.Compute(req.Body, []byte(testSecret))

	_, err := f.pipeline.Ingest(context.Background(), req)
	rej := requireReject(t, err, http.StatusBadRequest)
	assert.Equal(t, "Invalid JSON payload", rej.Detail)
	assert.Empty(t, f.seclogs.rows, "malformed JSON is not a security event")
}

func TestIngest_DuplicateRequestIDInStore(t *testing.T) {
	t.Parallel()

	// The replay store lost its state but the unique constraint holds.
	f := newPipelineFixture(t)
	f.events.err = storage.ErrDuplicateRequestID

	_, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	requireReject(t, err, http.StatusConflict)

	row := f.seclogs.single(t)
	assert.Equal(t, storage.EventReplayAttempt, row.EventType)
}

func TestIngest_PersistFailure(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.events.err = errors.New("connection reset")

	_, err := f.pipeline.Ingest(context.Background(), f.validRequest())
	require.Error(t, err)
	var rej *gateway.Reject
	assert.False(t, errors.As(err, &rej), "store failures are internal errors, not rejects")
	assert.Zero(t, f.forward.count())
}
