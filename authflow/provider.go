package authflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// providerConfig is the discovered provider with the matching oauth2 client
// configuration.
type providerConfig struct {
	provider *oidc.Provider
	oauth2   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// discovery fetches and caches the provider's discovery document.
type discovery struct {
	cfg  Config
	lock sync.Mutex
	pc   *providerConfig
}

func (d *discovery) get(ctx context.Context) (*providerConfig, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.pc != nil {
		return d.pc, nil
	}

	provider, err := oidc.NewProvider(d.withClient(ctx), d.cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering %s: %w", d.cfg.IssuerURL, err)
	}

	endpoint := provider.Endpoint()
	// Public client: client_id travels in the body, there is no secret.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	d.pc = &providerConfig{
		provider: provider,
		oauth2: &oauth2.Config{
			ClientID:    d.cfg.ClientID,
			Endpoint:    endpoint,
			RedirectURL: d.cfg.RedirectURL,
			Scopes:      d.cfg.scopes(),
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: d.cfg.ClientID}),
	}
	return d.pc, nil
}

func (d *discovery) withClient(ctx context.Context) context.Context {
	if d.cfg.HTTPClient == nil {
		return ctx
	}
	ctx = oidc.ClientContext(ctx, d.cfg.HTTPClient)
	return context.WithValue(ctx, oauth2.HTTPClient, d.cfg.HTTPClient)
}
