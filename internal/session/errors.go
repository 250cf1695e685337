package session

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession   = errors.New("no stored session")
	ErrInvalidUser = errors.New("invalid session user")
	ErrStoreClosed = errors.New("session store is closed")
)

// RedirectError tells the caller to send the user elsewhere instead of
// rendering the guarded page.
type RedirectError struct {
	Location string
	Cause    error
}

func (e *RedirectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("redirect to %s: %v", e.Location, e.Cause)
	}
	return "redirect to " + e.Location
}

func (e *RedirectError) Unwrap() error { return e.Cause }

// AsRedirect extracts a RedirectError from err's chain.
func AsRedirect(err error) (*RedirectError, bool) {
	var re *RedirectError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
