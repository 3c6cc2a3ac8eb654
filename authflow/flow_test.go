package authflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/jrsteele09/go-auth-client/credstore/repofake"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/pkce"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/stretchr/testify/require"
)

// testFixture holds all test dependencies
type testFixture struct {
	provider    *fakeProvider
	creds       *repofake.FakeStore
	verifiers   *pkce.Cache
	sessions    *session.Store
	flow        *authflow.Flow
	transitions []authflow.State
}

func setupTestFixture(t *testing.T, mutate func(*authflow.Config)) *testFixture {
	t.Helper()

	f := &testFixture{
		provider: newFakeProvider(t),
		creds:    repofake.NewFakeStore(),
	}
	cfg := authflow.Config{
		IssuerURL:   f.provider.issuer(),
		ClientID:    testClientID,
		RedirectURL: testRedirectURI,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.verifiers = pkce.NewCache(f.creds)
	f.sessions = session.NewStore(f.creds)
	f.flow = authflow.New(cfg, f.verifiers, f.sessions,
		authflow.WithTransitionHook(func(_, to authflow.State) {
			f.transitions = append(f.transitions, to)
		}),
	)
	return f
}

// begin issues an authorization request and has the fake provider accept it.
func (f *testFixture) begin(t *testing.T) *authflow.AuthorizationRequest {
	t.Helper()
	req, err := f.flow.Begin(context.Background())
	require.NoError(t, err)
	f.provider.authorized(req.URL)
	return req
}

func (f *testFixture) reachedFailed() bool {
	for _, s := range f.transitions {
		if s == authflow.StateFailed {
			return true
		}
	}
	return false
}

func TestBeginBuildsAuthorizationURL(t *testing.T) {
	f := setupTestFixture(t, func(c *authflow.Config) { c.Audience = "api1" })

	req, err := f.flow.Begin(context.Background())
	require.NoError(t, err)
	require.Equal(t, authflow.StateAwaitingCallback, f.flow.State())

	q := f.provider.authorized(req.URL)
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "openid profile email offline_access", q.Get("scope"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, req.State, q.Get("state"))
	require.Equal(t, "api1", q.Get("audience"))
	require.Empty(t, q.Get("code_verifier"))

	entry, err := f.verifiers.LoadEntry()
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, req.State, entry.State)
}

func TestBeginWithoutAudienceOmitsParam(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)
	require.NotContains(t, req.URL, "audience=")
}

func TestBeginNotConfigured(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*authflow.Config)
	}{
		{"no client id", func(c *authflow.Config) { c.ClientID = "" }},
		{"no issuer", func(c *authflow.Config) { c.IssuerURL = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, tt.mutate)
			_, err := f.flow.Begin(context.Background())
			require.ErrorIs(t, err, authflow.ErrConfiguration)
			require.True(t, f.reachedFailed())
			require.Equal(t, authflow.StateIdle, f.flow.State())
			require.Empty(t, f.creds.Snapshot())
		})
	}
}

func TestBeginProviderUnavailable(t *testing.T) {
	f := setupTestFixture(t, func(c *authflow.Config) { c.IssuerURL = "http://127.0.0.1:1" })
	_, err := f.flow.Begin(context.Background())
	require.ErrorIs(t, err, authflow.ErrProviderUnavailable)
	require.False(t, f.creds.Has(pkce.Key))
}

func TestBeginStoreFailure(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.creds.FailSet[pkce.Key] = errors.New("keychain locked")
	_, err := f.flow.Begin(context.Background())
	require.ErrorIs(t, err, authflow.ErrStoreFailure)
	require.Equal(t, authflow.StateIdle, f.flow.State())
}

func TestSuccessfulExchangeWithAudience(t *testing.T) {
	f := setupTestFixture(t, func(c *authflow.Config) { c.Audience = "api1" })
	req := f.begin(t)

	rec, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.NoError(t, err)
	require.Equal(t, authflow.StateAuthenticated, f.flow.State())

	require.Equal(t, "access-token-1", *rec.AccessToken)
	require.Equal(t, "refresh-token-1", *rec.RefreshToken)
	require.NotNil(t, rec.IDToken)
	require.Equal(t, "Bearer", *rec.TokenType)
	require.Equal(t, "openid profile email offline_access", *rec.Scope)
	require.Equal(t, "api1", *rec.Audience)
	exp, ok := rec.ExpiresAtTime()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	form := f.provider.form()
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testRedirectURI, form.Get("redirect_uri"))
	require.NotEmpty(t, form.Get("code_verifier"))

	require.False(t, f.creds.Has(pkce.Key), "verifier must be consumed")
	stored, err := f.sessions.Load()
	require.NoError(t, err)
	require.Equal(t, *rec, *stored)

	token, ok, err := session.NewResolver(f.sessions, "api1").ResolveAccessToken()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "access-token-1", token)

	_, ok, err = session.NewResolver(f.sessions, "api2").ResolveAccessToken()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExchangeWithoutExpiresIn(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.provider.setOmitExpiresIn(true)
	req := f.begin(t)

	rec, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.NoError(t, err)
	require.Nil(t, rec.ExpiresAt)
	require.Nil(t, rec.Audience)
	require.False(t, session.IsExpired(rec, time.Now().Add(24*365*time.Hour)))
}

func TestCallbackProviderDenied(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.begin(t)
	before := f.creds.Snapshot()

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{
		Error:            "access_denied",
		ErrorDescription: "User cancelled the login",
	})
	require.ErrorIs(t, err, authflow.ErrProviderDenied)
	require.Equal(t, authflow.ErrProviderDenied, authflow.KindOf(err))
	require.True(t, f.reachedFailed())
	require.Equal(t, authflow.StateIdle, f.flow.State())
	require.Equal(t, before, f.creds.Snapshot(), "store must be untouched")

	has, err := f.sessions.Has()
	require.NoError(t, err)
	require.False(t, has)

	_, tokenCalls := f.provider.calls()
	require.Zero(t, tokenCalls)
}

func TestCallbackProviderDeniedKeepsExistingSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.sessions.Save(session.Record{AccessToken: utils.Ptr("existing")}))

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Error: "access_denied"})
	require.ErrorIs(t, err, authflow.ErrProviderDenied)

	rec, err := f.sessions.Load()
	require.NoError(t, err)
	require.Equal(t, "existing", *rec.AccessToken)
}

func TestCallbackMissingCode(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{State: req.State})
	require.ErrorIs(t, err, authflow.ErrMissingCode)
	require.True(t, f.creds.Has(pkce.Key))
}

func TestCallbackMissingVerifierMakesNoNetworkCall(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: "whatever"})
	require.ErrorIs(t, err, authflow.ErrMissingVerifier)
	require.True(t, f.reachedFailed())
	require.Equal(t, authflow.StateIdle, f.flow.State())

	discoveryCalls, tokenCalls := f.provider.calls()
	require.Zero(t, discoveryCalls)
	require.Zero(t, tokenCalls)
}

func TestCallbackAfterVerifierExpired(t *testing.T) {
	f := setupTestFixture(t, nil)
	now := time.Now()
	f.verifiers = pkce.NewCache(f.creds, pkce.WithClock(func() time.Time { return now.Add(-11 * time.Minute) }))
	require.NoError(t, f.verifiers.SaveEntry("stale-verifier", "s1"))

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: "s1"})
	require.ErrorIs(t, err, authflow.ErrMissingVerifier)
	require.False(t, f.creds.Has(pkce.Key))
}

func TestCallbackStateMismatch(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.begin(t)

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: "forged"})
	require.ErrorIs(t, err, authflow.ErrStateMismatch)
	require.True(t, f.creds.Has(pkce.Key))
	has, err := f.sessions.Has()
	require.NoError(t, err)
	require.False(t, has)
}

func TestSecondBeginInvalidatesFirst(t *testing.T) {
	f := setupTestFixture(t, nil)
	first := f.begin(t)
	second := f.begin(t)

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: first.State})
	require.ErrorIs(t, err, authflow.ErrStateMismatch)

	_, err = f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: second.State})
	require.NoError(t, err)
}

func TestExchangeFailureAllowsOneRetry(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)
	f.provider.setFailNext(1)
	params := oauthmodel.CallbackParams{Code: testCode, State: req.State}

	_, err := f.flow.HandleCallback(context.Background(), params)
	require.ErrorIs(t, err, authflow.ErrExchangeFailed)
	require.True(t, authflow.RetryAllowed(err))
	require.Equal(t, authflow.StateIdle, f.flow.State())
	require.True(t, f.creds.Has(pkce.Key), "verifier kept for retry")
	has, err := f.sessions.Has()
	require.NoError(t, err)
	require.False(t, has)

	rec, err := f.flow.HandleCallback(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, "access-token-1", *rec.AccessToken)
}

func TestExchangeFailureTwiceDiscardsVerifier(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)
	f.provider.setFailNext(2)
	params := oauthmodel.CallbackParams{Code: testCode, State: req.State}

	_, err := f.flow.HandleCallback(context.Background(), params)
	require.ErrorIs(t, err, authflow.ErrExchangeFailed)
	_, err = f.flow.HandleCallback(context.Background(), params)
	require.ErrorIs(t, err, authflow.ErrExchangeFailed)
	require.False(t, authflow.RetryAllowed(err))
	require.False(t, f.creds.Has(pkce.Key))

	_, err = f.flow.HandleCallback(context.Background(), params)
	require.ErrorIs(t, err, authflow.ErrMissingVerifier)
}

func TestExchangeRejectedCode(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: "wrong", State: req.State})
	require.ErrorIs(t, err, authflow.ErrExchangeFailed)
}

func TestVerifierClearedBeforeSessionSaved(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.sessions.Save(session.Record{AccessToken: utils.Ptr("previous")}))
	req := f.begin(t)
	f.creds.FailSet[session.Key] = errors.New("disk full")

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.ErrorIs(t, err, authflow.ErrStoreFailure)
	require.False(t, f.creds.Has(pkce.Key), "verifier must already be gone when the session write fails")

	rec, err := f.sessions.Load()
	require.NoError(t, err)
	require.Equal(t, "previous", *rec.AccessToken, "last known-good session kept")
}

func TestVerifierClearFailureSkipsSessionSave(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)
	f.creds.FailDelete[pkce.Key] = errors.New("keychain locked")

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.ErrorIs(t, err, authflow.ErrStoreFailure)
	require.False(t, f.creds.Has(session.Key))
}

func TestVerifyIDToken(t *testing.T) {
	f := setupTestFixture(t, func(c *authflow.Config) { c.VerifyIDToken = true })
	req := f.begin(t)

	rec, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.NoError(t, err)

	id, err := session.IdentityClaims(rec)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.Subject)
	require.Equal(t, "john.doe@example.com", id.Email)
}

func TestVerifyIDTokenWrongAudience(t *testing.T) {
	f := setupTestFixture(t, func(c *authflow.Config) { c.VerifyIDToken = true })
	f.provider.setIDTokenAudience("someone-else")
	req := f.begin(t)

	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.ErrorIs(t, err, authflow.ErrExchangeFailed)
	has, err := f.sessions.Has()
	require.NoError(t, err)
	require.False(t, has)
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t, nil)
	req := f.begin(t)
	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{Code: testCode, State: req.State})
	require.NoError(t, err)
	f.begin(t)

	require.NoError(t, f.flow.Logout())
	require.Empty(t, f.creds.Snapshot())
	require.Equal(t, authflow.StateIdle, f.flow.State())
}

func TestRelogin(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.NoError(t, f.sessions.Save(session.Record{AccessToken: utils.Ptr("old")}))

	req, err := f.flow.Relogin(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, req.URL)
	require.False(t, f.creds.Has(session.Key))
	require.True(t, f.creds.Has(pkce.Key))
}

func TestFailureMessageIsGeneric(t *testing.T) {
	f := setupTestFixture(t, nil)
	_, err := f.flow.HandleCallback(context.Background(), oauthmodel.CallbackParams{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sign-in failed")
	require.Equal(t, err, f.flow.LastFailure())

	f.begin(t)
	require.Nil(t, f.flow.LastFailure())
}
