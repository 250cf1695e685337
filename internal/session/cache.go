package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
)

const (
	storageKey = "user"

	// LoginPath is the only authenticated endpoint whose 401 does not
	// invalidate the cached session.
	LoginPath = "/auth/login"

	LoginRedirect   = "/login"
	ExpiredRedirect = "/login?session_expired=true"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Session struct {
	User     User      `json:"user"`
	StoredAt time.Time `json:"storedAt"`
}

// Cache is the single owner of the signed-in user. Components receive it
// explicitly instead of reading the store themselves.
type Cache struct {
	store  Store
	events bus.EventBus
	logger log.Log
	now    func() time.Time
}

// NewCache wires a cache to its store. events may be nil; otherwise clears
// are published on bus.TopicSession.
func NewCache(store Store, events bus.EventBus, logger log.Log) *Cache {
	if events != nil {
		_ = events.CreateTopic(bus.TopicSession, bus.TopicConfig{Description: "cached login session changes"})
	}
	return &Cache{
		store:  store,
		events: events,
		logger: logger.With(log.String("component", "session")),
		now:    time.Now,
	}
}

// Load returns the cached session or ErrNoSession. A record that no longer
// decodes is dropped.
func (c *Cache) Load() (*Session, error) {
	raw, ok, err := c.store.Get(storageKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}

	var s Session
	if err = json.Unmarshal(raw, &s); err != nil || s.User.Username == "" {
		c.logger.Warn("Dropping unreadable session record", log.Error(err))
		_ = c.store.Delete(storageKey)
		return nil, ErrNoSession
	}
	return &s, nil
}

func (c *Cache) Save(user User) error {
	if user.Username == "" {
		return ErrInvalidUser
	}

	raw, err := json.Marshal(Session{User: user, StoredAt: c.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err = c.store.Put(storageKey, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	c.logger.Info("Session saved", log.String("username", user.Username))
	return nil
}

func (c *Cache) Clear() error {
	return c.clear(bus.SessionCleared{Reason: "logout"})
}

// Invalidate applies the 401 rule: an unauthorized response from any path
// other than the login endpoint clears the session. It reports whether the
// session was cleared.
func (c *Cache) Invalidate(path string, status int) bool {
	if status != 401 || strings.Contains(path, LoginPath) {
		return false
	}
	if err := c.clear(bus.SessionCleared{Reason: "unauthorized", Path: path, Status: status}); err != nil {
		c.logger.Error("Failed to clear session", log.Error(err))
	}
	return true
}

func (c *Cache) clear(reason bus.SessionCleared) error {
	if err := c.store.Delete(storageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	c.logger.Info("Session cleared",
		log.String("reason", reason.Reason),
		log.String("path", reason.Path))

	if c.events != nil {
		if err := c.events.PublishToTopic(bus.TopicSession, bus.NewEvent(bus.TypeSessionCleared, "session", reason, nil)); err != nil {
			c.logger.Warn("Session cleared handlers failed", log.Error(err))
		}
	}
	return nil
}
