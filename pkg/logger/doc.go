// Package logger builds the process-wide slog.Logger from environment
// configuration.
//
// Production environments get JSON output for log aggregation; development
// gets human-readable text. The level comes from LOG_LEVEL and DEBUG forces
// debug level regardless.
package logger
