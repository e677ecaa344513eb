package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/hookgate/pkg/pg"
)

const (
	// maxResponseBody bounds the stored response body of a forward attempt.
	maxResponseBody = 1024
	// maxErrorMessage bounds the stored error message of a failed forward.
	maxErrorMessage = 100
)

// EventRepo manages webhook event audit rows.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

const eventColumns = `id, provider_id, request_id, payload, headers, signature_valid,
	forwarded, response_status, response_body, error_message, received_at, forwarded_at`

func scanEvent(row pgx.Row) (WebhookEvent, error) {
	var e WebhookEvent
	err := row.Scan(&e.ID, &e.ProviderID, &e.RequestID, &e.Payload, &e.Headers, &e.SignatureValid,
		&e.Forwarded, &e.ResponseStatus, &e.ResponseBody, &e.ErrorMessage, &e.ReceivedAt, &e.ForwardedAt)
	return e, err
}

// InsertEventParams carries a verified webhook ready for persistence.
type InsertEventParams struct {
	ProviderID uuid.UUID
	RequestID  string
	Payload    json.RawMessage
	Headers    map[string]string
}

// Insert appends the audit row for an accepted webhook. signature_valid is
// always true here: events are only persisted after verification passes.
// Returns ErrDuplicateRequestID when the unique constraint on request_id
// fires, which is how concurrent duplicates lose the race.
func (r *EventRepo) Insert(ctx context.Context, arg InsertEventParams) (WebhookEvent, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_events (id, provider_id, request_id, payload, headers, signature_valid, forwarded)
		VALUES ($1, $2, $3, $4, $5, TRUE, FALSE)
		RETURNING `+eventColumns,
		uuid.New(), arg.ProviderID, arg.RequestID, arg.Payload, arg.Headers)

	e, err := scanEvent(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return WebhookEvent{}, ErrDuplicateRequestID
		}
		return WebhookEvent{}, fmt.Errorf("insert webhook event: %w", err)
	}
	return e, nil
}

// ForwardingStatus is the forwarder's writeback after its final attempt.
type ForwardingStatus struct {
	Forwarded      bool
	ResponseStatus *int
	ResponseBody   *string
	ErrorMessage   *string
	ForwardedAt    time.Time
}

// UpdateForwardingStatus records the terminal outcome of a forwarding run.
// Last writer wins; the update is idempotent. Oversized response bodies and
// error messages are truncated before hitting the wire.
func (r *EventRepo) UpdateForwardingStatus(ctx context.Context, eventID uuid.UUID, status ForwardingStatus) error {
	body := truncate(status.ResponseBody, maxResponseBody)
	errMsg := truncate(status.ErrorMessage, maxErrorMessage)

	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET forwarded = $2, response_status = $3, response_body = $4, error_message = $5, forwarded_at = $6
		WHERE id = $1`,
		eventID, status.Forwarded, status.ResponseStatus, body, errMsg, status.ForwardedAt)
	if err != nil {
		return fmt.Errorf("update forwarding status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ResetForwardingStatus clears the forwarding fields ahead of an operator
// retry so the event reads as pending again.
func (r *EventRepo) ResetForwardingStatus(ctx context.Context, eventID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_events
		SET forwarded = FALSE, response_status = NULL, response_body = NULL, error_message = NULL, forwarded_at = NULL
		WHERE id = $1`,
		eventID)
	if err != nil {
		return fmt.Errorf("reset forwarding status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetByID fetches one event.
func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (WebhookEvent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM webhook_events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return WebhookEvent{}, ErrEventNotFound
		}
		return WebhookEvent{}, fmt.Errorf("get webhook event: %w", err)
	}
	return e, nil
}

// EventFilter narrows List results.
type EventFilter struct {
	ProviderID *uuid.UUID
	Limit      int
	Offset     int
}

// List returns events newest first.
func (r *EventRepo) List(ctx context.Context, filter EventFilter) ([]WebhookEvent, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE ($1::uuid IS NULL OR provider_id = $1)
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3`,
		filter.ProviderID, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var events []WebhookEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats aggregates forwarding outcomes, optionally for one provider.
func (r *EventRepo) Stats(ctx context.Context, providerID *uuid.UUID) (EventStats, error) {
	var s EventStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE forwarded),
		       count(*) FILTER (WHERE NOT forwarded AND forwarded_at IS NOT NULL),
		       count(*) FILTER (WHERE NOT forwarded AND forwarded_at IS NULL)
		FROM webhook_events
		WHERE ($1::uuid IS NULL OR provider_id = $1)`,
		providerID).Scan(&s.Total, &s.Successful, &s.Failed, &s.Pending)
	if err != nil {
		return EventStats{}, fmt.Errorf("webhook event stats: %w", err)
	}
	return s, nil
}

// truncate bounds an optional string to max bytes.
func truncate(s *string, max int) *string {
	if s == nil || len(*s) <= max {
		return s
	}
	cut := (*s)[:max]
	return &cut
}
