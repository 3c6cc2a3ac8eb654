package oauthmodel

import (
	"fmt"
	"net/url"
	"strings"
)

// CallbackParams holds the parameters the identity provider appends to the
// redirect URI after the user finishes (or abandons) the authorization step.
type CallbackParams struct {
	// Code is the single-use authorization code.
	// Present: on success
	// Example: "SplxlOBeZQQYbYS6WxSbIA"
	// Usage: exchanged once, together with the PKCE verifier, at the token endpoint
	Code string

	// State echoes the opaque value sent with the authorization request.
	// Present: whenever the request carried one
	// Security: must match the value stored with the pending verifier
	State string

	// Error is the OAuth error code when authorization did not succeed.
	// Example: "access_denied", "login_required"
	// Behavior: any non-empty value ends the attempt without an exchange
	Error string

	// ErrorDescription is the provider's human-readable explanation of Error.
	// Example: "User cancelled the login"
	ErrorDescription string
}

// ParseCallback reads callback parameters from query or form values.
func ParseCallback(values url.Values) CallbackParams {
	return CallbackParams{
		Code:             strings.TrimSpace(values.Get(ParamCode)),
		State:            values.Get(ParamState),
		Error:            strings.TrimSpace(values.Get(ParamError)),
		ErrorDescription: values.Get(ParamErrorDescription),
	}
}

// ParseCallbackURL reads callback parameters from a full redirect URL. Both
// the query string and the fragment are consulted; the query wins.
func ParseCallbackURL(raw string) (CallbackParams, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return CallbackParams{}, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	values := u.Query()
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return CallbackParams{}, fmt.Errorf("%w: fragment: %v", ErrMalformedCallback, err)
		}
		for k, v := range frag {
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}
	return ParseCallback(values), nil
}

// HasError reports whether the provider returned an error.
func (p CallbackParams) HasError() bool {
	return p.Error != ""
}
