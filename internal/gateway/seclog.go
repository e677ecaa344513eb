package gateway

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/hookgate/internal/storage"
)

// SecurityLogs is the slice of storage the security logger writes to.
type SecurityLogs interface {
	Insert(ctx context.Context, arg storage.InsertSecurityLogParams) error
}

// SecurityLogger records defense triggers best-effort: a failed insert is
// logged and swallowed, because the HTTP response for the triggering request
// is already decided.
type SecurityLogger struct {
	logs SecurityLogs
	log  *slog.Logger
}

func NewSecurityLogger(logs SecurityLogs, log *slog.Logger) *SecurityLogger {
	return &SecurityLogger{logs: logs, log: log}
}

// Record appends one security log row. An empty requestID is stored as NULL.
func (l *SecurityLogger) Record(ctx context.Context, providerName string, event storage.SecurityEventType, ip, requestID string, details map[string]any) {
	var reqID *string
	if requestID != "" {
		reqID = &requestID
	}

	err := l.logs.Insert(ctx, storage.InsertSecurityLogParams{
		ProviderName: providerName,
		EventType:    event,
		IPAddress:    ip,
		RequestID:    reqID,
		Details:      details,
	})
	if err != nil {
		l.log.Error("security log insert failed",
			"provider", providerName, "event_type", event, "error", err)
	}
}
