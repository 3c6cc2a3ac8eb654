// Package pkce holds the single pending PKCE code verifier between issuing an
// authorization request and handling its callback.
package pkce

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/credstore"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// Key is the credential store key of the verifier slot.
	Key = "pkce_v1"
	// TTL is how long a saved verifier stays usable.
	TTL = 10 * time.Minute
	// MaxExchangeAttempts is the number of code exchanges one verifier may back.
	MaxExchangeAttempts = 2
)

// Entry is the persisted verifier slot.
type Entry struct {
	CodeVerifier   string `json:"codeVerifier"`
	CreatedAt      int64  `json:"createdAt"` // epoch millis
	State          string `json:"state,omitempty"`
	FailedAttempts int    `json:"failedAttempts,omitempty"`
}

// CreatedTime returns CreatedAt as a time.Time.
func (e Entry) CreatedTime() time.Time {
	return time.UnixMilli(e.CreatedAt)
}

// Cache is a single-slot verifier store. Saving overwrites the slot, so a
// second authorization request silently invalidates the first.
type Cache struct {
	store credstore.Store
	clock func() time.Time
	ttl   time.Duration
}

type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// WithTTL replaces the verifier lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

func NewCache(store credstore.Store, opts ...Option) *Cache {
	c := &Cache{store: store, clock: time.Now, ttl: TTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewVerifier returns a fresh RFC 7636 code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// Save stores verifier with no state binding.
func (c *Cache) Save(verifier string) error {
	return c.SaveEntry(verifier, "")
}

// SaveEntry stores verifier together with the state it was issued with.
func (c *Cache) SaveEntry(verifier, state string) error {
	if verifier == "" {
		return fmt.Errorf("[pkce SaveEntry] empty verifier: %w", autherrors.ErrInternal)
	}
	e := Entry{
		CodeVerifier: verifier,
		CreatedAt:    c.clock().UnixMilli(),
		State:        state,
	}
	return credstore.SetJSON(c.store, Key, e)
}

// Load returns the verifier when a live entry exists.
func (c *Cache) Load() (string, bool, error) {
	e, err := c.LoadEntry()
	if err != nil || e == nil {
		return "", false, err
	}
	return e.CodeVerifier, true, nil
}

// LoadEntry returns the live entry, or nil when the slot is empty. Expired,
// empty and unreadable entries are deleted before returning nil.
func (c *Cache) LoadEntry() (*Entry, error) {
	var e Entry
	found, err := credstore.GetJSON(c.store, Key, &e)
	if autherrors.Is(err, autherrors.ErrCorruptRecord) {
		log.Warn().Err(err).Msg("[pkce LoadEntry] discarding unreadable verifier entry")
		return nil, c.Clear()
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	if e.CodeVerifier == "" {
		return nil, c.Clear()
	}
	if age := c.clock().Sub(e.CreatedTime()); age > c.ttl {
		log.Debug().Dur("age", age).Msg("[pkce LoadEntry] purging expired verifier")
		return nil, c.Clear()
	}
	return &e, nil
}

// Clear empties the slot.
func (c *Cache) Clear() error {
	if err := c.store.Delete(Key); err != nil {
		return fmt.Errorf("[pkce Clear] %w", err)
	}
	return nil
}

// RecordFailedExchange counts a failed exchange against the live entry. Once
// MaxExchangeAttempts is reached the entry is purged and exhausted is true.
func (c *Cache) RecordFailedExchange() (exhausted bool, err error) {
	e, err := c.LoadEntry()
	if err != nil {
		return false, err
	}
	if e == nil {
		return true, nil
	}
	e.FailedAttempts++
	if e.FailedAttempts >= MaxExchangeAttempts {
		return true, c.Clear()
	}
	return false, credstore.SetJSON(c.store, Key, e)
}
