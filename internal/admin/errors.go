package admin

import "errors"

var (
	// ErrUnsupportedAlgorithm indicates a JWT_ALGORITHM outside the HMAC
	// family.
	ErrUnsupportedAlgorithm = errors.New("unsupported jwt signing algorithm")

	// ErrMissingSigningKey indicates an empty JWT_SECRET_KEY.
	ErrMissingSigningKey = errors.New("missing jwt signing key")

	// ErrInvalidToken indicates a token that failed verification.
	ErrInvalidToken = errors.New("invalid token")
)
