// Package authflow drives the OAuth2 authorization code exchange with PKCE:
// issuing the authorization request, handling the provider's redirect,
// exchanging the code and persisting the resulting session.
//
// Only one attempt is meaningful at a time. Begin overwrites the single
// verifier slot, so a second Begin silently invalidates the first attempt.
package authflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const tracerName = "github.com/jrsteele09/go-auth-client/authflow"

// AuthorizationRequest is what the caller needs to send the user to the provider.
type AuthorizationRequest struct {
	URL         string
	State       string
	RedirectURL string
}

// TransitionHook observes every state change.
type TransitionHook func(from, to State)

// Flow is the authentication state machine.
type Flow struct {
	cfg       Config
	verifiers *pkce.Cache
	sessions  *session.Store
	discovery *discovery
	clock     func() time.Time
	tracer    trace.Tracer
	hooks     []TransitionHook

	lock        sync.Mutex
	state       State
	lastFailure error
}

type Option func(*Flow)

// WithClock replaces time.Now for expiry computation.
func WithClock(clock func() time.Time) Option {
	return func(f *Flow) { f.clock = clock }
}

// WithTransitionHook registers hook for state changes.
func WithTransitionHook(hook TransitionHook) Option {
	return func(f *Flow) { f.hooks = append(f.hooks, hook) }
}

// WithTracerProvider replaces the global otel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Flow) { f.tracer = tp.Tracer(tracerName) }
}

func New(cfg Config, verifiers *pkce.Cache, sessions *session.Store, opts ...Option) *Flow {
	f := &Flow{
		cfg:       cfg,
		verifiers: verifiers,
		sessions:  sessions,
		discovery: &discovery{cfg: cfg},
		clock:     time.Now,
		tracer:    otel.Tracer(tracerName),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.state
}

// LastFailure returns the failure that ended the previous attempt, if any.
func (f *Flow) LastFailure() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.lastFailure
}

// Configured reports whether the provider can be used.
func (f *Flow) Configured() bool {
	return f.cfg.Configured()
}

func (f *Flow) transition(to State) {
	f.lock.Lock()
	from := f.state
	f.state = to
	if to == StateAuthorizationRequested {
		f.lastFailure = nil
	}
	hooks := f.hooks
	f.lock.Unlock()

	log.Debug().Str("from", from.String()).Str("to", to.String()).Msg("[authflow] transition")
	for _, h := range hooks {
		h(from, to)
	}
}

// fail moves through Failed back to Idle and returns the failure.
func (f *Flow) fail(span trace.Span, kind error, detail string, err error) error {
	return f.failWith(span, newFailure(kind, detail, err))
}

func (f *Flow) failWith(span trace.Span, failure *Failure) error {
	f.transition(StateFailed)
	f.lock.Lock()
	f.lastFailure = failure
	f.lock.Unlock()

	log.Warn().
		Str("kind", failure.Kind.Error()).
		Str("detail", failure.Detail).
		Bool("retryable", failure.Retryable).
		AnErr("cause", failure.Err).
		Msg("[authflow] sign-in failed")
	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Kind.Error())

	f.transition(StateIdle)
	return failure
}

// Begin issues a new authorization request: it discovers the provider,
// stores a fresh verifier bound to a new state value and returns the URL
// the user must visit.
func (f *Flow) Begin(ctx context.Context) (*AuthorizationRequest, error) {
	ctx, span := f.tracer.Start(ctx, "authflow.Begin")
	defer span.End()

	f.transition(StateAuthorizationRequested)
	if !f.cfg.Configured() {
		return nil, f.fail(span, ErrConfiguration, "missing "+f.cfg.missing(), nil)
	}

	pc, err := f.discovery.get(ctx)
	if err != nil {
		return nil, f.fail(span, ErrProviderUnavailable, "", err)
	}

	verifier := pkce.NewVerifier()
	state := uuid.NewString()
	if err := f.verifiers.SaveEntry(verifier, state); err != nil {
		return nil, f.fail(span, ErrStoreFailure, "saving verifier", err)
	}

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if f.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam(oauthmodel.ParamAudience, f.cfg.Audience))
	}
	req := &AuthorizationRequest{
		URL:         pc.oauth2.AuthCodeURL(state, opts...),
		State:       state,
		RedirectURL: f.cfg.RedirectURL,
	}

	span.SetAttributes(attribute.Bool("authflow.audience", f.cfg.Audience != ""))
	f.transition(StateAwaitingCallback)
	return req, nil
}

// HandleCallback finishes an attempt from the provider's redirect
// parameters. On success the verifier is deleted before the new session is
// persisted, and the stored record is returned.
//
// An ErrExchangeFailed failure keeps the verifier for one more attempt.
// Every other failure leaves the session store untouched.
func (f *Flow) HandleCallback(ctx context.Context, params oauthmodel.CallbackParams) (*session.Record, error) {
	ctx, span := f.tracer.Start(ctx, "authflow.HandleCallback")
	defer span.End()

	if f.State() != StateAwaitingCallback {
		f.transition(StateAwaitingCallback)
	}
	if !f.cfg.Configured() {
		return nil, f.fail(span, ErrConfiguration, "missing "+f.cfg.missing(), nil)
	}
	if params.HasError() {
		return nil, f.fail(span, ErrProviderDenied, params.Error, errorFromDescription(params.ErrorDescription))
	}
	if params.Code == "" {
		return nil, f.fail(span, ErrMissingCode, "", nil)
	}

	f.transition(StateExchanging)
	entry, err := f.verifiers.LoadEntry()
	if err != nil {
		return nil, f.fail(span, ErrStoreFailure, "loading verifier", err)
	}
	if entry == nil {
		return nil, f.fail(span, ErrMissingVerifier, "", nil)
	}
	if entry.State != "" && entry.State != params.State {
		return nil, f.fail(span, ErrStateMismatch, "", nil)
	}

	resp, err := f.exchange(ctx, params.Code, entry.CodeVerifier)
	if err != nil {
		exhausted, recErr := f.verifiers.RecordFailedExchange()
		if recErr != nil {
			log.Warn().Err(recErr).Msg("[authflow HandleCallback] recording failed exchange")
		}
		if recErr != nil {
			return nil, f.fail(span, ErrExchangeFailed, "attempt not recorded", err)
		}
		if exhausted {
			return nil, f.fail(span, ErrExchangeFailed, "verifier discarded", err)
		}
		failure := newFailure(ErrExchangeFailed, "retry allowed", err)
		failure.Retryable = true
		return nil, f.failWith(span, failure)
	}

	// The verifier goes first: a crash before Save leaves neither a usable
	// verifier nor a new session.
	if err := f.verifiers.Clear(); err != nil {
		return nil, f.fail(span, ErrStoreFailure, "clearing verifier", err)
	}

	rec := f.recordFrom(resp)
	if err := f.sessions.Save(rec); err != nil {
		return nil, f.fail(span, ErrStoreFailure, "saving session", err)
	}

	f.transition(StateAuthenticated)
	log.Info().
		Bool("id_token", rec.IDToken != nil).
		Bool("refresh_token", rec.RefreshToken != nil).
		Bool("expires", rec.ExpiresAt != nil).
		Msg("[authflow] signed in")
	return &rec, nil
}

func (f *Flow) exchange(ctx context.Context, code, verifier string) (oauthmodel.TokenResponse, error) {
	pc, err := f.discovery.get(ctx)
	if err != nil {
		return oauthmodel.TokenResponse{}, err
	}

	tok, err := pc.oauth2.Exchange(f.discovery.withClient(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return oauthmodel.TokenResponse{}, err
	}
	resp := oauthmodel.FromOAuth2Token(tok)
	if !resp.HasAnyToken() {
		return oauthmodel.TokenResponse{}, oauthmodel.ErrNoToken
	}

	if f.cfg.VerifyIDToken && resp.IDToken != nil {
		if _, err := pc.verifier.Verify(f.discovery.withClient(ctx), *resp.IDToken); err != nil {
			return oauthmodel.TokenResponse{}, err
		}
	}
	return resp, nil
}

func (f *Flow) recordFrom(resp oauthmodel.TokenResponse) session.Record {
	rec := session.Record{
		AccessToken:  resp.AccessToken,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		Audience:     utils.NonEmpty(f.cfg.Audience),
	}
	if resp.ExpiresAt != nil {
		rec.ExpiresAt = session.ExpiresAtMillis(*resp.ExpiresAt)
	}
	return rec
}

// Logout deletes the session and any pending verifier.
func (f *Flow) Logout() error {
	errSession := f.sessions.Clear()
	errVerifier := f.verifiers.Clear()
	f.transition(StateIdle)
	if err := errors.Join(errSession, errVerifier); err != nil {
		return newFailure(ErrStoreFailure, "logout", err)
	}
	return nil
}

// Relogin discards the current session and starts a new attempt.
func (f *Flow) Relogin(ctx context.Context) (*AuthorizationRequest, error) {
	if err := f.sessions.Clear(); err != nil {
		return nil, newFailure(ErrStoreFailure, "clearing session", err)
	}
	return f.Begin(ctx)
}

func errorFromDescription(desc string) error {
	if desc == "" {
		return nil
	}
	return errors.New(desc)
}
