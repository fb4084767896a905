package schema

import "errors"

var (
	// ErrLaunchFailed indicates a session could not be spawned.
	ErrLaunchFailed = errors.New("launch failed")
	// ErrSessionNotFound indicates a stale or unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCapacityExceeded indicates the registry is at its session limit.
	ErrCapacityExceeded = errors.New("maximum concurrent sessions reached")
	// ErrDeviceClosed indicates a write or resize after the process ended.
	ErrDeviceClosed = errors.New("device closed")
	// ErrBackendUnavailable indicates the backend program is missing at startup.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrCaptureActive indicates capture is already running for the session.
	ErrCaptureActive = errors.New("capture already active")
	// ErrCaptureNotActive indicates no capture is running for the session.
	ErrCaptureNotActive = errors.New("capture not active")
	// ErrInvalidBackend indicates an unknown backend selector.
	ErrInvalidBackend = errors.New("invalid backend")
)
