package offlinecache

import "errors"

var (
	// ErrNotFound is returned when no cached response exists for a request identity
	ErrNotFound = errors.New("cached response not found")

	// ErrInvalidRegistrationState is returned by a registration builder when an
	// existing registration can no longer be used and must be torn down
	ErrInvalidRegistrationState = errors.New("registration is in an invalid state")
)
