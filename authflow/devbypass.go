//go:build !production

package authflow

import (
	"time"

	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog/log"
)

// DevBypassAvailable is false in builds tagged production.
const DevBypassAvailable = true

const (
	DevToken         = "dev-token"
	DevTokenLifetime = 7 * 24 * time.Hour
)

// DevBypass persists a placeholder session without contacting any provider.
// It is refused when a provider is configured, and is absent from builds
// tagged production.
func (f *Flow) DevBypass() (*session.Record, error) {
	if f.cfg.Configured() {
		return nil, ErrDevBypassNotAllowed
	}
	rec := session.Record{
		AccessToken: utils.Ptr(DevToken),
		ExpiresAt:   session.ExpiresAtMillis(f.clock().Add(DevTokenLifetime)),
	}
	if err := f.sessions.Save(rec); err != nil {
		return nil, newFailure(ErrStoreFailure, "saving dev session", err)
	}
	log.Warn().Msg("[authflow DevBypass] development session created, no provider was contacted")
	f.transition(StateAuthenticated)
	return &rec, nil
}
