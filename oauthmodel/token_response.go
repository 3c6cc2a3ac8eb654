package oauthmodel

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is the token endpoint result for the authorization_code
// grant. Optional fields are pointers so an absent value stays distinct from
// an empty one.
type TokenResponse struct {
	// AccessToken is used to call the protected API.
	// Usage: "Authorization: Bearer <access_token>"
	AccessToken *string

	// IDToken is the OpenID Connect identity token.
	// Present: when the "openid" scope was granted
	IDToken *string

	// RefreshToken is the long-lived token for obtaining new access tokens.
	// Present: when "offline_access" was granted
	// Note: stored but never used; there is no refresh flow
	RefreshToken *string

	// TokenType says how to present the access token, normally "Bearer".
	TokenType *string

	// Scope is the space-separated list of granted scopes.
	// Note: may be narrower than requested
	Scope *string

	// ExpiresAt is derived from expires_in at exchange time.
	// Absent: the provider did not send expires_in
	ExpiresAt *time.Time
}

// FromOAuth2Token converts the x/oauth2 token, reading id_token and scope
// from the raw response.
func FromOAuth2Token(tok *oauth2.Token) TokenResponse {
	if tok == nil {
		return TokenResponse{}
	}
	resp := TokenResponse{
		AccessToken:  optional(tok.AccessToken),
		RefreshToken: optional(tok.RefreshToken),
		TokenType:    optional(tok.TokenType),
	}
	if s, ok := tok.Extra(ParamIDToken).(string); ok {
		resp.IDToken = optional(s)
	}
	if s, ok := tok.Extra(ParamScope).(string); ok {
		resp.Scope = optional(s)
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		resp.ExpiresAt = &exp
	}
	return resp
}

// HasAnyToken reports whether the response carries an access, ID or refresh token.
func (r TokenResponse) HasAnyToken() bool {
	return r.AccessToken != nil || r.IDToken != nil || r.RefreshToken != nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
