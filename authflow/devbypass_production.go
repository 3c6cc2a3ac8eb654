//go:build production

package authflow

import "github.com/jrsteele09/go-auth-client/session"

const DevBypassAvailable = false

func (f *Flow) DevBypass() (*session.Record, error) {
	return nil, ErrDevBypassUnavailable
}
