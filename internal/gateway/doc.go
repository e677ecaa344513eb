// Package gateway is the ingestion path: one handler that authenticates,
// rate-limits, replay-checks, persists, and acknowledges inbound webhooks.
//
// The pipeline is a strict per-request sequence. Provider lookup comes before
// the rate limit because the limit is keyed on provider id; the rate limit
// comes before signature verification so signature spraying cannot impose
// unbounded CPU cost; verification comes before the timestamp and replay
// checks so unauthenticated traffic never touches the replay store. The HMAC
// is computed over the exact captured body bytes.
package gateway
