package domain

import (
	"errors"
	"net/http"
	"strconv"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a failed call to the rate source.
// Status is zero when the request never produced a response.
type NetworkError struct {
	Op        string // Operation that failed (e.g., "fetch", "decode")
	Status    int    // HTTP status code, if any
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return e.Op + ": status " + strconv.Itoa(e.Status) + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// NewStatusError creates an error for a non-2xx response.
// Throttling and server-side failures are retriable, everything else is not.
func NewStatusError(op string, status int) *NetworkError {
	return &NetworkError{
		Op:        op,
		Status:    status,
		Err:       ErrUnexpectedStatus,
		Retriable: status == http.StatusTooManyRequests || status >= 500,
	}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrRateUnavailable means no usable rate could be produced. Renderers show "N/A".
	ErrRateUnavailable = errors.New("rate unavailable")

	// ErrInvalidRate is returned for a zero, negative or unparsable rate.
	ErrInvalidRate = errors.New("invalid rate")

	// ErrInvalidAmount is returned for negative, NaN or infinite amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrDiscountOutOfRange is returned when the discount would divide by zero.
	ErrDiscountOutOfRange = errors.New("discount out of range")

	// ErrInvalidRounding is returned for a granularity outside {1, 10, 100, 1000}.
	ErrInvalidRounding = errors.New("invalid rounding")

	// ErrMissingCredentials is returned when server, store or key is empty.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrUnexpectedStatus is wrapped by NetworkError for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrInvalidSetting is returned for an unknown key or malformed value.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
)
