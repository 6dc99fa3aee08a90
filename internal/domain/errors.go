package domain

import "errors"

var (
	// ErrNotFound covers both genuinely absent rows and rows the caller
	// is not allowed to see. Read paths must not distinguish the two.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness-constraint loss. Reconciliation
	// paths recover from it internally; it only escapes when retrying
	// as an update is impossible.
	ErrConflict = errors.New("conflict")

	// ErrInvalidRole rejects a role value outside the closed enum.
	ErrInvalidRole = errors.New("invalid role")

	// ErrRoleRequired denies an action the caller's role cannot perform
	// on a resource the caller is otherwise allowed to know exists.
	ErrRoleRequired = errors.New("role required")

	// ErrUnauthorized rejects requests with a missing or unverifiable
	// session token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput rejects malformed request payloads before any
	// state is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks identity-provider calls that failed
	// at the transport layer or returned a server error. It never
	// grants access.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInvalidTransition rejects a status change the pipeline does
	// not permit, including any transition out of a terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
