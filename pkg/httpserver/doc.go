// Package httpserver wraps http.Server with signal-aware startup and
// graceful shutdown so cmd/gateway can run the router with one call.
package httpserver
