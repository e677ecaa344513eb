package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Provider is a configured webhook source: who may post to
// /webhooks/{name}, the HMAC secret they sign with, and where validated
// payloads are forwarded.
type Provider struct {
	ID            uuid.UUID
	Name          string
	SecretKey     string
	ForwardingURL string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WebhookEvent is the audit row for one accepted webhook. Created once by
// the ingestion pipeline; only the forwarder and the retry endpoint mutate
// its forwarding fields afterwards.
type WebhookEvent struct {
	ID             uuid.UUID
	ProviderID     uuid.UUID
	RequestID      string
	Payload        json.RawMessage
	Headers        map[string]string
	SignatureValid bool
	Forwarded      bool
	ResponseStatus *int
	ResponseBody   *string
	ErrorMessage   *string
	ReceivedAt     time.Time
	ForwardedAt    *time.Time
}

// SecurityEventType enumerates the defense triggers recorded in
// security_logs.
type SecurityEventType string

const (
	EventInvalidSignature  SecurityEventType = "invalid_signature"
	EventRateLimitExceeded SecurityEventType = "rate_limit_exceeded"
	EventReplayAttempt     SecurityEventType = "replay_attempt"
	EventInvalidTimestamp  SecurityEventType = "invalid_timestamp"
	EventTimestampTooOld   SecurityEventType = "timestamp_too_old"
	EventTimestampInFuture SecurityEventType = "timestamp_in_future"
)

// SecurityLog is one recorded defense trigger. provider_name is a plain
// string rather than a foreign key: the provider may not exist at all.
type SecurityLog struct {
	ID           uuid.UUID
	ProviderName string
	EventType    SecurityEventType
	IPAddress    string
	RequestID    *string
	Details      map[string]any
	CreatedAt    time.Time
}

// EventStats aggregates forwarding outcomes for the admin dashboard.
type EventStats struct {
	Total      int64
	Successful int64
	Failed     int64
	Pending    int64
}

// SecurityLogStats aggregates security log counts by event type.
type SecurityLogStats struct {
	Total  int64
	ByType map[SecurityEventType]int64
}
