package unlock

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog/log"
)

// Fallback selects what happens on resume when biometrics are unavailable.
type Fallback int

const (
	// FallbackFailOpen resumes without any challenge.
	FallbackFailOpen Fallback = iota
	// FallbackPasscode requires the local passcode.
	FallbackPasscode
)

func (f Fallback) String() string {
	switch f {
	case FallbackFailOpen:
		return "fail-open"
	case FallbackPasscode:
		return "passcode"
	}
	return "unknown"
}

// Decision is the outcome of Resume.
type Decision int

const (
	// DecisionNoSession means there is nothing to unlock; start a login.
	DecisionNoSession Decision = iota
	// DecisionResumed means a challenge passed.
	DecisionResumed
	// DecisionResumedWithoutChallenge means the fail-open fallback let the session through.
	DecisionResumedWithoutChallenge
	// DecisionLocked means the challenge was declined or failed. The caller
	// may retry or Discard and sign in again.
	DecisionLocked
)

func (d Decision) String() string {
	switch d {
	case DecisionNoSession:
		return "no_session"
	case DecisionResumed:
		return "resumed"
	case DecisionResumedWithoutChallenge:
		return "resumed_without_challenge"
	case DecisionLocked:
		return "locked"
	}
	return "unknown"
}

// Live reports whether the session may be used.
func (d Decision) Live() bool {
	return d == DecisionResumed || d == DecisionResumedWithoutChallenge
}

// PasscodePrompt asks the user for the fallback passcode.
type PasscodePrompt func(ctx context.Context) (string, error)

const defaultPrompt = "Unlock"

// Gate decides whether an existing session is live again on resume.
type Gate struct {
	bio       Biometrics
	sessions  *session.Store
	fallback  Fallback
	passcodes *Passcodes
	prompt    PasscodePrompt
	message   string
}

type Option func(*Gate)

// WithPasscodeFallback requires passcodes, asked for with prompt, when
// biometrics are unavailable.
func WithPasscodeFallback(passcodes *Passcodes, prompt PasscodePrompt) Option {
	return func(g *Gate) {
		g.fallback = FallbackPasscode
		g.passcodes = passcodes
		g.prompt = prompt
	}
}

// WithPromptMessage sets the message shown by the biometric prompt.
func WithPromptMessage(msg string) Option {
	return func(g *Gate) { g.message = msg }
}

func NewGate(bio Biometrics, sessions *session.Store, opts ...Option) *Gate {
	g := &Gate{bio: bio, sessions: sessions, fallback: FallbackFailOpen, message: defaultPrompt}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fallback returns the configured fallback.
func (g *Gate) Fallback() Fallback {
	return g.fallback
}

// CanUseBiometrics is true only when hardware is present and at least one
// credential is enrolled. Subsystem errors count as unavailable.
func (g *Gate) CanUseBiometrics(ctx context.Context) bool {
	hw, err := g.bio.HasHardware(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[unlock CanUseBiometrics] hardware check failed")
		return false
	}
	if !hw {
		return false
	}
	enrolled, err := g.bio.IsEnrolled(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[unlock CanUseBiometrics] enrollment check failed")
		return false
	}
	return enrolled
}

// BiometricUnlock prompts for the biometric check and is true only on
// explicit success.
func (g *Gate) BiometricUnlock(ctx context.Context) bool {
	ok, err := g.bio.Authenticate(ctx, g.message)
	if err != nil {
		log.Warn().Err(err).Msg("[unlock BiometricUnlock] challenge failed")
		return false
	}
	return ok
}

// Resume applies the unlock policy to the stored session.
func (g *Gate) Resume(ctx context.Context) (Decision, error) {
	has, err := g.sessions.Has()
	if err != nil {
		return DecisionLocked, fmt.Errorf("[unlock Resume] %w", err)
	}
	if !has {
		return DecisionNoSession, nil
	}

	if g.CanUseBiometrics(ctx) {
		if g.BiometricUnlock(ctx) {
			return DecisionResumed, nil
		}
		return DecisionLocked, nil
	}

	switch g.fallback {
	case FallbackPasscode:
		return g.passcodeUnlock(ctx)
	default:
		log.Warn().Msg("[unlock Resume] biometrics unavailable, resuming without challenge")
		return DecisionResumedWithoutChallenge, nil
	}
}

func (g *Gate) passcodeUnlock(ctx context.Context) (Decision, error) {
	if g.passcodes == nil || g.prompt == nil {
		return DecisionLocked, nil
	}
	set, err := g.passcodes.IsSet()
	if err != nil {
		return DecisionLocked, fmt.Errorf("[unlock Resume] %w", err)
	}
	if !set {
		log.Warn().Msg("[unlock Resume] passcode fallback configured but no passcode set")
		return DecisionLocked, nil
	}
	entered, err := g.prompt(ctx)
	if err != nil {
		return DecisionLocked, fmt.Errorf("[unlock Resume] prompt: %w", err)
	}
	ok, err := g.passcodes.Check(entered)
	if err != nil {
		return DecisionLocked, fmt.Errorf("[unlock Resume] %w", err)
	}
	if !ok {
		return DecisionLocked, nil
	}
	return DecisionResumed, nil
}

// Discard deletes the session so the caller can start a fresh login.
func (g *Gate) Discard() error {
	return g.sessions.Clear()
}
