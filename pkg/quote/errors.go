package quote

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a symbol the data source does not know. It is
// permanent for the requested symbol and callers should not retry it
// within the same tick.
var ErrNotFound = errors.New("quote: unknown symbol")

// TransientError wraps failures worth retrying on a later tick:
// network errors, rate limits, and server-side errors.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("quote: transient error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("quote: transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
