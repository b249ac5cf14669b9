package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrAuthCancelled    = fmt.Errorf("authorization cancelled by user")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrNetwork            = fmt.Errorf("network error")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrMalformedResponse  = fmt.Errorf("malformed response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrEmptyResult        = fmt.Errorf("empty result set")

	// Playback device errors
	ErrNoDevice         = fmt.Errorf("no available devices found")
	ErrNoMatchingDevice = fmt.Errorf("no matching device found")
	ErrTransferFailed   = fmt.Errorf("failed to transfer playback to device")

	// Calendar errors
	ErrCalendarDenied = fmt.Errorf("calendar access denied")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// APIError is returned for any non-2xx response from a remote API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%v: %s returned status %d: %s", ErrAPIRequest, e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%v: %s returned status %d", ErrAPIRequest, e.Endpoint, e.StatusCode)
}

// Unwrap lets [errors.Is] match [ErrAPIRequest], and [ErrTokenExpired] for 401s.
func (e *APIError) Unwrap() []error {
	if e.StatusCode == 401 {
		return []error{ErrAPIRequest, ErrTokenExpired}
	}
	return []error{ErrAPIRequest}
}

// IsDeviceError reports whether err is a playback-device failure the user can fix by opening a player.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrNoDevice) || errors.Is(err, ErrNoMatchingDevice) || errors.Is(err, ErrTransferFailed)
}
