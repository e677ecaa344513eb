// Package redis owns the Redis connection lifecycle for the gateway's two
// KV concerns: replay claims and rate-limit counters.
package redis
