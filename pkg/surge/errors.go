package surge

import "errors"

// Engine and server errors
var (
	// ErrAlreadyCompleted indicates a second completion of a response
	// completes object. The first completion wins; the second one is a
	// programming error on the caller's side and is never written out.
	ErrAlreadyCompleted = errors.New("surge: response already completed")

	// ErrNoHandler indicates construction without an application handler
	ErrNoHandler = errors.New("surge: handler is required")

	// ErrInvalidPoolSize indicates a non-positive dispatcher pool size
	ErrInvalidPoolSize = errors.New("surge: dispatcher pool size must be positive")

	// ErrServerNotStartable indicates a start-up on a server that is not in
	// the created state; servers are single-use and never restart
	ErrServerNotStartable = errors.New("surge: server cannot be started")

	// ErrFrontendAttached indicates a frontend attach outside the created state
	ErrFrontendAttached = errors.New("surge: frontend can only be attached before start-up")
)
