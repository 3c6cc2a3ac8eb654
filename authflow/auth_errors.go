package authflow

import (
	"errors"
	"strings"
)

// Failure kinds. Every failed attempt ends in a *Failure whose Kind is one of
// these, so errors.Is(err, ErrMissingVerifier) and friends work.
var (
	ErrConfiguration       = errors.New("not configured")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrProviderDenied      = errors.New("provider denied authorization")
	ErrMissingCode         = errors.New("callback carried no code")
	ErrMissingVerifier     = errors.New("pkce verifier expired or missing")
	ErrStateMismatch       = errors.New("callback state mismatch")
	ErrExchangeFailed      = errors.New("token exchange failed")
	ErrStoreFailure        = errors.New("credential store failure")

	ErrDevBypassNotAllowed  = errors.New("dev bypass requires an unconfigured provider")
	ErrDevBypassUnavailable = errors.New("dev bypass is not compiled into this build")
)

// Failure is the error returned when an attempt ends in the Failed state.
// Its message is the generic "sign-in failed" text; Kind and Err carry the
// cause for logging.
type Failure struct {
	Kind   error
	Detail string
	Err    error
	// Retryable is set when the same callback may be handled once more.
	Retryable bool
}

func newFailure(kind error, detail string, err error) *Failure {
	return &Failure{Kind: kind, Detail: detail, Err: err}
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("sign-in failed: ")
	b.WriteString(f.Kind.Error())
	if f.Detail != "" {
		b.WriteString(" (")
		b.WriteString(f.Detail)
		b.WriteString(")")
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// KindOf returns the failure kind carried by err, or nil.
func KindOf(err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return nil
}

// RetryAllowed reports whether err is a failure that kept the verifier for
// another exchange of the same callback.
func RetryAllowed(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Retryable
}
