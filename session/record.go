// Package session models the persisted authenticated session, its store
// projection over the credential store, and the policy deciding whether the
// stored access token may be attached to an outbound request.
package session

import (
	"time"

	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// Record is the authenticated principal's credentials. Every field is
// optional; nil means absent.
type Record struct {
	AccessToken  *string `json:"accessToken,omitempty"`
	IDToken      *string `json:"idToken,omitempty"`
	RefreshToken *string `json:"refreshToken,omitempty"`
	TokenType    *string `json:"tokenType,omitempty"`
	Scope        *string `json:"scope,omitempty"`
	// ExpiresAt is epoch millis. Absent means the token does not expire.
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
	// Audience is the API audience requested at login time.
	Audience *string `json:"audience,omitempty"`
}

// HasTokens reports whether any of the access, ID or refresh tokens is set.
// A record without tokens is the same as no session.
func (r *Record) HasTokens() bool {
	if r == nil {
		return false
	}
	return utils.HasValue(r.AccessToken) || utils.HasValue(r.IDToken) || utils.HasValue(r.RefreshToken)
}

// ExpiresAtTime returns the expiry and whether one is set.
func (r *Record) ExpiresAtTime() (time.Time, bool) {
	if r == nil || r.ExpiresAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*r.ExpiresAt), true
}

// IsExpired is false when no expiry is recorded, otherwise now >= expiresAt.
func IsExpired(r *Record, now time.Time) bool {
	exp, ok := r.ExpiresAtTime()
	if !ok {
		return false
	}
	return !now.Before(exp)
}

// ExpiresAtMillis converts t to the persisted expiry representation.
func ExpiresAtMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	return utils.Ptr(t.UnixMilli())
}
