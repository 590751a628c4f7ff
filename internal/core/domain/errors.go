package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidState indicates an unknown, expired, or replayed OAuth state.
	// The ledger consumes states exactly once; a second callback with the
	// same state lands here.
	ErrInvalidState = errors.New("invalid or expired oauth state")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session sat idle past its TTL
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken indicates the session has no server-held refresh token
	ErrNoRefreshToken = errors.New("no refresh token for session")
)
