// Package storage persists the gateway's three records: provider
// configurations, webhook event audit rows, and security logs.
//
// Uniqueness and referential integrity live in the database, not in
// application checks: request_id collisions surface as
// ErrDuplicateRequestID from the unique constraint so concurrent inserts
// stay correct, and provider deletion is refused by the RESTRICT foreign key
// while events reference it.
package storage
