package config

import (
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type AuthConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetAudience() string
	GetRedirectURL() string
	GetScopes() []string
	GetVerifyIDToken() bool
	IsProviderConfigured() bool
}

type Auth struct {
	Domain        string   `env:"AUTH_DOMAIN"`
	ClientID      string   `env:"AUTH_CLIENT_ID"`
	Audience      string   `env:"AUTH_AUDIENCE"`
	RedirectURL   string   `env:"AUTH_REDIRECT_URL"    envDefault:"http://127.0.0.1:8765/callback"`
	ExtraScopes   []string `env:"AUTH_EXTRA_SCOPES"    envSeparator:","`
	VerifyIDToken bool     `env:"AUTH_VERIFY_ID_TOKEN" envDefault:"false"`
}

var _ AuthConfig = Auth{}

// DefaultScopes are always requested.
var DefaultScopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}

// GetIssuerURL returns the provider issuer, "https://<AUTH_DOMAIN>" unless the
// domain already carries a scheme. Empty when no domain is configured.
func (a Auth) GetIssuerURL() string {
	d := strings.TrimRight(strings.TrimSpace(a.Domain), "/")
	if d == "" {
		return ""
	}
	if strings.HasPrefix(d, "https://") || strings.HasPrefix(d, "http://") {
		return d
	}
	return "https://" + d
}

func (a Auth) GetClientID() string {
	return strings.TrimSpace(a.ClientID)
}

func (a Auth) GetAudience() string {
	return strings.TrimSpace(a.Audience)
}

func (a Auth) GetRedirectURL() string {
	return strings.TrimSpace(a.RedirectURL)
}

// GetScopes returns the default scopes followed by any extra scopes, without duplicates.
func (a Auth) GetScopes() []string {
	scopes := append([]string{}, DefaultScopes...)
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		seen[s] = struct{}{}
	}
	for _, s := range a.ExtraScopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	return scopes
}

func (a Auth) GetVerifyIDToken() bool {
	return a.VerifyIDToken
}

func (a Auth) IsProviderConfigured() bool {
	return a.GetIssuerURL() != "" && a.GetClientID() != ""
}
