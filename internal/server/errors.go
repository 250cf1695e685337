package server

import "errors"

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrMaxClientsReached    = errors.New("maximum clients reached")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrUnknownAction        = errors.New("unknown action")
	ErrNoField              = errors.New("field not initialized")
	ErrTooManyLabels        = errors.New("too many labels")
	ErrDuplicateLabel       = errors.New("duplicate label")
	ErrEmptyLabel           = errors.New("empty label")
	ErrInvalidArena         = errors.New("invalid arena size")
	ErrConnectionClosed     = errors.New("connection is closed")
)
