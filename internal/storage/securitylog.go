package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/hookgate/pkg/pg"
)

// SecurityLogRepo appends and queries defense-trigger records.
type SecurityLogRepo struct {
	pool *pgxpool.Pool
}

func NewSecurityLogRepo(pool *pgxpool.Pool) *SecurityLogRepo {
	return &SecurityLogRepo{pool: pool}
}

const securityLogColumns = "id, provider_name, event_type, ip_address, request_id, details, created_at"

func scanSecurityLog(row pgx.Row) (SecurityLog, error) {
	var l SecurityLog
	err := row.Scan(&l.ID, &l.ProviderName, &l.EventType, &l.IPAddress, &l.RequestID, &l.Details, &l.CreatedAt)
	return l, err
}

// InsertSecurityLogParams carries one defense trigger.
type InsertSecurityLogParams struct {
	ProviderName string
	EventType    SecurityEventType
	IPAddress    string
	RequestID    *string
	Details      map[string]any
}

// Insert appends a security log row. Rows are never updated or deleted.
func (r *SecurityLogRepo) Insert(ctx context.Context, arg InsertSecurityLogParams) error {
	details := arg.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO security_logs (id, provider_name, event_type, ip_address, request_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), arg.ProviderName, arg.EventType, arg.IPAddress, arg.RequestID, details)
	if err != nil {
		return fmt.Errorf("insert security log: %w", err)
	}
	return nil
}

// GetByID fetches one security log row.
func (r *SecurityLogRepo) GetByID(ctx context.Context, id uuid.UUID) (SecurityLog, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+securityLogColumns+` FROM security_logs WHERE id = $1`, id)
	l, err := scanSecurityLog(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return SecurityLog{}, ErrSecurityLogNotFound
		}
		return SecurityLog{}, fmt.Errorf("get security log: %w", err)
	}
	return l, nil
}

// SecurityLogFilter narrows List and export results.
type SecurityLogFilter struct {
	EventType    *SecurityEventType
	ProviderName *string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}

// List returns security logs newest first. A zero Limit means 50; Limit < 0
// disables pagination entirely, which the CSV export uses to stream every
// matching row.
func (r *SecurityLogRepo) List(ctx context.Context, filter SecurityLogFilter) ([]SecurityLog, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+securityLogColumns+`
		FROM security_logs
		WHERE ($1::text IS NULL OR event_type = $1)
		  AND ($2::text IS NULL OR provider_name = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at <= $4)
		ORDER BY created_at DESC
		LIMIT CASE WHEN $5 < 0 THEN NULL ELSE $5 END OFFSET $6`,
		filter.EventType, filter.ProviderName, filter.DateFrom, filter.DateTo, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list security logs: %w", err)
	}
	defer rows.Close()

	var logs []SecurityLog
	for rows.Next() {
		l, err := scanSecurityLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan security log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Stats aggregates log counts by event type.
func (r *SecurityLogRepo) Stats(ctx context.Context) (SecurityLogStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_type, count(*)
		FROM security_logs
		GROUP BY event_type`)
	if err != nil {
		return SecurityLogStats{}, fmt.Errorf("security log stats: %w", err)
	}
	defer rows.Close()

	stats := SecurityLogStats{ByType: make(map[SecurityEventType]int64)}
	for rows.Next() {
		var eventType SecurityEventType
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return SecurityLogStats{}, fmt.Errorf("scan security log stats: %w", err)
		}
		stats.ByType[eventType] = count
		stats.Total += count
	}
	return stats, rows.Err()
}
