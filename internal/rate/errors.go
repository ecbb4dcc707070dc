package rate

import "errors"

var (
	// ErrInvalidPolicy is returned when a policy has no attempts or no window.
	ErrInvalidPolicy = errors.New("rate: policy requires max attempts > 0 and window > 0")
	// ErrBackendUnavailable wraps counter store failures.
	ErrBackendUnavailable = errors.New("rate: counter backend unavailable")
)
