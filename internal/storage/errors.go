package storage

import "errors"

var (
	// ErrProviderNotFound indicates no provider with the given name or id.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderExists indicates a create with an already-taken name.
	ErrProviderExists = errors.New("provider already exists")

	// ErrProviderInUse indicates a delete refused because webhook events
	// still reference the provider.
	ErrProviderInUse = errors.New("provider has webhook events and cannot be deleted")

	// ErrDuplicateRequestID indicates an insert with a request_id that an
	// earlier event already claimed.
	ErrDuplicateRequestID = errors.New("request id already processed")

	// ErrEventNotFound indicates no webhook event with the given id.
	ErrEventNotFound = errors.New("webhook event not found")

	// ErrSecurityLogNotFound indicates no security log with the given id.
	ErrSecurityLogNotFound = errors.New("security log not found")
)
