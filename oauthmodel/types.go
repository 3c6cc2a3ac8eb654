package oauthmodel

// Request and callback parameter names.
const (
	// ParamAudience is the provider-specific parameter that scopes the access
	// token to an API. Sent only when an audience is configured.
	ParamAudience = "audience"

	ParamCode             = "code"
	ParamState            = "state"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
	ParamIDToken          = "id_token"
	ParamScope            = "scope"
)
