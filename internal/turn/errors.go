package turn

import "errors"

var (
	// ErrConcurrentTurn is returned when a turn arrives while another turn
	// already holds the user's session slot. Retryable as soon as the
	// active turn completes.
	ErrConcurrentTurn = errors.New("another turn is already active for this user")

	// ErrTurnTimeout means the provider did not finish within the per-turn
	// deadline. Nothing was recorded in history.
	ErrTurnTimeout = errors.New("provider timed out")

	// ErrTurnCancelled means the caller disconnected or cancelled the
	// turn. Nothing was recorded in history.
	ErrTurnCancelled = errors.New("turn cancelled")

	// ErrProviderFailure wraps any other provider error.
	ErrProviderFailure = errors.New("provider error")
)
