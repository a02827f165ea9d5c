package shared

import "errors"

var (
	// Configuration errors
	ErrMissingConfig = errors.New("configuration not found")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrSessionExpired     = errors.New("session expired")

	// API and service errors
	ErrAPIRequest         = errors.New("API request failed")
	ErrNotFound           = errors.New("resource not found")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAudioUnavailable   = errors.New("audio output unavailable")
	ErrEmptyQueue         = errors.New("queue is empty")

	// Input validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidArgument = errors.New("invalid argument")
)
