package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/rs/zerolog/log"
)

const callbackPage = `<!doctype html><title>Signed in</title><p>You can close this window and return to the terminal.</p>`

// callbackRouter delivers the first request to path on the returned channel.
// Later requests get 410 Gone.
func callbackRouter(path string) (http.Handler, <-chan oauthmodel.CallbackParams) {
	ch := make(chan oauthmodel.CallbackParams, 1)
	var delivered atomic.Bool
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, loggingMiddleware, securityHeadersMiddleware)
	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		if !delivered.CompareAndSwap(false, true) {
			http.Error(w, "sign-in already completed", http.StatusGone)
			return
		}
		params := oauthmodel.ParseCallback(req.URL.Query())
		ch <- params
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if params.HasError() {
			w.WriteHeader(http.StatusBadRequest)
		}
		fmt.Fprint(w, callbackPage)
	})
	return r, ch
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The query carries the authorization code, so only the path is logged.
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("callback request")
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware keeps the redirect page, and the code in its URL,
// out of frames, caches and referrers.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// callbackServer listens on the redirect URL's host and port until Close.
type callbackServer struct {
	srv      *http.Server
	listener net.Listener
	params   <-chan oauthmodel.CallbackParams
}

func listenForCallback(redirectURL string) (*callbackServer, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect url: %w", err)
	}
	if u.Scheme != "http" || u.Port() == "" {
		return nil, fmt.Errorf("redirect url %q must be an http loopback address with a port", redirectURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	l, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", u.Host, err)
	}
	handler, ch := callbackRouter(path)
	cs := &callbackServer{
		srv:      &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		listener: l,
		params:   ch,
	}
	go func() {
		if err := cs.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("callback server stopped")
		}
	}()
	log.Debug().Str("addr", l.Addr().String()).Str("path", path).Msg("waiting for redirect")
	return cs, nil
}

// Wait blocks for the redirect or until ctx is done.
func (cs *callbackServer) Wait(ctx context.Context) (oauthmodel.CallbackParams, error) {
	select {
	case p := <-cs.params:
		return p, nil
	case <-ctx.Done():
		return oauthmodel.CallbackParams{}, ctx.Err()
	}
}

func (cs *callbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return cs.srv.Shutdown(ctx)
}
