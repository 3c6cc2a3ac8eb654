package authflow

import (
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Config is the authorization request configuration for one provider.
type Config struct {
	IssuerURL   string
	ClientID    string
	RedirectURL string
	// Audience is sent as the provider's audience parameter when set and
	// recorded on the resulting session.
	Audience string
	// Scopes defaults to DefaultScopes when empty.
	Scopes []string
	// VerifyIDToken checks a returned id_token against the provider's keys.
	VerifyIDToken bool
	// HTTPClient is used for discovery and the token exchange. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// DefaultScopes is the fixed scope set requested at login.
var DefaultScopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}

// Configured reports whether both the issuer and client id are set.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.IssuerURL) != "" && strings.TrimSpace(c.ClientID) != ""
}

func (c Config) scopes() []string {
	if len(c.Scopes) == 0 {
		return DefaultScopes
	}
	return c.Scopes
}

func (c Config) missing() string {
	var missing []string
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "client id")
	}
	if strings.TrimSpace(c.IssuerURL) == "" {
		missing = append(missing, "issuer")
	}
	return strings.Join(missing, ", ")
}
