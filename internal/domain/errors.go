package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function;
// the dispatcher stores the wrapped message of pipeline errors on the queue item.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrNotRetryable = errors.New("item cannot be retried")
	ErrQueueFull    = errors.New("queue is at capacity, try again later")

	// Pipeline stage errors.
	ErrGeneration  = errors.New("generation failed")
	ErrImage       = errors.New("image generation failed")
	ErrPublication = errors.New("publication failed")
)

// MaxErrorMessageLen bounds the error text persisted on a failed queue item.
const MaxErrorMessageLen = 500

// TruncateError shortens msg to at most MaxErrorMessageLen characters
// without splitting a multi-byte rune.
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLen {
		return msg
	}
	return string(runes[:MaxErrorMessageLen])
}
