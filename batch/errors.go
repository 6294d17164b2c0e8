package batch

import "errors"

// ErrClosed is returned by Add after Close.
var ErrClosed = errors.New("batch: processor is closed")

// nonRetryableError marks a delivery failure that must not be retried.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string {
	return e.err.Error()
}

func (e *nonRetryableError) Unwrap() error {
	return e.err
}

// NonRetryable wraps err so the processor drops the batch instead of
// retrying it. A nil err stays nil.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}

	return &nonRetryableError{err: err}
}

// IsRetryable reports whether a delivery error may be retried. Unknown
// error types default to retryable.
func IsRetryable(err error) bool {
	var nonRetryable *nonRetryableError

	return !errors.As(err, &nonRetryable)
}
