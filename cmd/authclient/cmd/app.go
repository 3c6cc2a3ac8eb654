package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/jrsteele09/go-auth-client/credstore"
	"github.com/jrsteele09/go-auth-client/credstore/boltstore"
	"github.com/jrsteele09/go-auth-client/credstore/repofake"
	"github.com/jrsteele09/go-auth-client/credstore/sqlitestore"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog/log"
)

// app is everything a command needs, built from the loaded configuration.
type app struct {
	creds     credstore.Store
	closer    io.Closer
	sessions  *session.Store
	flow      *authflow.Flow
	resolver  *session.Resolver
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openStore(c config.Config) (credstore.Store, io.Closer, error) {
	backend := c.GetStoreBackend()
	if backend == config.StoreBackendMemory {
		log.Warn().Msg("memory credential store: nothing survives this process")
		s := repofake.NewFakeStore()
		return s, nopCloser{}, nil
	}

	if err := os.MkdirAll(c.GetDataFolder(), 0700); err != nil {
		return nil, nil, fmt.Errorf("creating data folder: %w", err)
	}
	path := config.StoreFile(c)
	log.Debug().Str("backend", string(backend)).Str("path", path).Msg("opening credential store")

	switch backend {
	case config.StoreBackendSQLite:
		s, err := sqlitestore.Open(path, c.GetStorePassphrase(), nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := boltstore.Open(path, c.GetStorePassphrase(), nil)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

func authConfig(c config.Config) authflow.Config {
	return authflow.Config{
		IssuerURL:     c.GetIssuerURL(),
		ClientID:      c.GetClientID(),
		RedirectURL:   c.GetRedirectURL(),
		Audience:      c.GetAudience(),
		Scopes:        c.GetScopes(),
		VerifyIDToken: c.GetVerifyIDToken(),
	}
}

func newApp(c config.Config) (*app, error) {
	creds, closer, err := openStore(c)
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(creds)
	verifiers := pkce.NewCache(creds)
	flow := authflow.New(authConfig(c), verifiers, sessions,
		authflow.WithTransitionHook(func(from, to authflow.State) {
			log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("auth state")
		}))
	return &app{
		creds:     creds,
		closer:    closer,
		sessions:  sessions,
		flow:      flow,
		resolver:  session.NewResolver(sessions, c.GetAudience()),
	}, nil
}

func (a *app) api(c config.Config) *apiclient.Client {
	return apiclient.New(c.GetAPIBaseURL(), a.resolver)
}

func (a *app) Close() error {
	return a.closer.Close()
}

// withApp opens the app for the duration of fn.
func withApp(fn func(a *app) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("closing credential store")
		}
	}()
	return fn(a)
}
