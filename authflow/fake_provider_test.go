package authflow_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testClientID    = "test-client-1"
	testRedirectURI = "http://127.0.0.1:8765/callback"
	testCode        = "SplxlOBeZQQYbYS6WxSbIA"
	testKeyID       = "test-key-1"
)

// fakeProvider is an httptest identity provider serving discovery, JWKS and
// a token endpoint that checks the PKCE proof against the last
// authorization request it was told about.
type fakeProvider struct {
	t   *testing.T
	srv *httptest.Server
	key *rsa.PrivateKey

	lock           sync.Mutex
	discoveryCalls int
	tokenCalls     int
	lastForm       url.Values
	challenge      string
	failNext       int
	omitExpiresIn  bool
	idTokenAud     string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &fakeProvider{t: t, key: key, idTokenAud: testClientID}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", p.discovery)
	mux.HandleFunc("/.well-known/jwks.json", p.jwks)
	mux.HandleFunc("/oauth/token", p.token)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) issuer() string { return p.srv.URL }

func (p *fakeProvider) discovery(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	p.discoveryCalls++
	p.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                p.srv.URL,
		"authorization_endpoint":                p.srv.URL + "/authorize",
		"token_endpoint":                        p.srv.URL + "/oauth/token",
		"jwks_uri":                              p.srv.URL + "/.well-known/jwks.json",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{"S256"},
	})
}

func (p *fakeProvider) jwks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &p.key.PublicKey,
		KeyID:     testKeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	p.lock.Lock()
	p.tokenCalls++
	p.lastForm = r.PostForm
	challenge := p.challenge
	fail := p.failNext > 0
	if fail {
		p.failNext--
	}
	omitExpiry := p.omitExpiresIn
	aud := p.idTokenAud
	p.lock.Unlock()

	if fail {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily_unavailable"})
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != testCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != challenge {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "pkce mismatch"})
		return
	}

	body := map[string]any{
		"access_token":  "access-token-1",
		"id_token":      p.idToken(aud),
		"refresh_token": "refresh-token-1",
		"token_type":    "Bearer",
		"scope":         "openid profile email offline_access",
	}
	if !omitExpiry {
		body["expires_in"] = 3600
	}
	writeJSON(w, http.StatusOK, body)
}

func (p *fakeProvider) idToken(aud string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   p.srv.URL,
		"sub":   "user-1",
		"aud":   aud,
		"email": "john.doe@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	})
	tok.Header["kid"] = testKeyID
	raw, _ := tok.SignedString(p.key)
	return raw
}

// authorized records the challenge from an authorization URL, standing in
// for the user completing the provider's login page.
func (p *fakeProvider) authorized(authURL string) url.Values {
	u, err := url.Parse(authURL)
	require.NoError(p.t, err)
	q := u.Query()
	p.lock.Lock()
	p.challenge = q.Get("code_challenge")
	p.lock.Unlock()
	return q
}

func (p *fakeProvider) setFailNext(n int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.failNext = n
}

func (p *fakeProvider) setOmitExpiresIn(omit bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.omitExpiresIn = omit
}

func (p *fakeProvider) setIDTokenAudience(aud string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.idTokenAud = aud
}

func (p *fakeProvider) form() url.Values {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.lastForm
}

func (p *fakeProvider) calls() (discovery, token int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.discoveryCalls, p.tokenCalls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
