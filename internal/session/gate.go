package session

import (
	"context"
	"errors"

	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
)

// Checker verifies server-side that the cached session is still valid.
type Checker interface {
	CheckAuth(ctx context.Context) (bool, error)
}

// Gate guards pages that need a signed-in user.
type Gate struct {
	cache   *Cache
	checker Checker
	logger  log.Log
}

func NewGate(cache *Cache, checker Checker, logger log.Log) *Gate {
	return &Gate{
		cache:   cache,
		checker: checker,
		logger:  logger.With(log.String("component", "gate")),
	}
}

// RequireSession returns the cached session once the backend confirms it. Any
// failure comes back as a *RedirectError; a failed verification also clears
// the cache.
func (g *Gate) RequireSession(ctx context.Context) (*Session, error) {
	s, err := g.cache.Load()
	if err != nil {
		return nil, &RedirectError{Location: LoginRedirect, Cause: err}
	}

	ok, err := g.checker.CheckAuth(ctx)
	if err != nil {
		g.logger.Warn("Auth check failed", log.String("username", s.User.Username), log.Error(err))
	}
	if err != nil || !ok {
		if cerr := g.cache.clear(bus.SessionCleared{Reason: "verification failed"}); cerr != nil {
			g.logger.Error("Failed to clear session", log.Error(cerr))
		}
		if err == nil {
			err = errors.New("session rejected by server")
		}
		return nil, &RedirectError{Location: ExpiredRedirect, Cause: err}
	}
	return s, nil
}
