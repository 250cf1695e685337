package loop

import "errors"

var (
	ErrAlreadyRunning = errors.New("loop is already running")
	ErrClosed         = errors.New("loop is closed")
)
