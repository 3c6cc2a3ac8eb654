package session

import (
	"time"

	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/rs/zerolog/log"
)

// Resolver decides, right before an authenticated request, whether the
// stored access token may be used.
//
// An expired token is still returned: there is no refresh flow, so the
// resource server's 401 is the signal to sign in again.
type Resolver struct {
	store    *Store
	audience string
	clock    func() time.Time
}

type ResolverOption func(*Resolver)

// WithResolverClock replaces time.Now.
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) { r.clock = clock }
}

// NewResolver returns a Resolver for the application's configured audience,
// which may be empty.
func NewResolver(store *Store, audience string, opts ...ResolverOption) *Resolver {
	r := &Resolver{store: store, audience: audience, clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAccessToken returns the token to send as a bearer credential. ok is
// false when there is no session, no access token, or the token was issued
// for a different audience than the one configured.
func (r *Resolver) ResolveAccessToken() (token string, ok bool, err error) {
	rec, err := r.store.Load()
	if err != nil {
		return "", false, err
	}
	if rec == nil || !utils.HasValue(rec.AccessToken) {
		return "", false, nil
	}
	if r.audience != "" && rec.Audience != nil && *rec.Audience != r.audience {
		log.Debug().
			Str("stored_audience", *rec.Audience).
			Str("configured_audience", r.audience).
			Msg("[session ResolveAccessToken] audience mismatch")
		return "", false, nil
	}
	if r.IsExpired(rec) {
		log.Debug().Msg("[session ResolveAccessToken] returning expired access token")
	}
	return *rec.AccessToken, true, nil
}

// IsExpired evaluates the record against the resolver's clock.
func (r *Resolver) IsExpired(rec *Record) bool {
	return IsExpired(rec, r.clock())
}
