package authflow

// State is a step of the authorization code + PKCE exchange.
type State int

const (
	StateIdle State = iota
	StateAuthorizationRequested
	StateAwaitingCallback
	StateExchanging
	StateAuthenticated
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                   "idle",
	StateAuthorizationRequested: "authorization_requested",
	StateAwaitingCallback:       "awaiting_callback",
	StateExchanging:             "exchanging",
	StateAuthenticated:          "authenticated",
	StateFailed:                 "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}
