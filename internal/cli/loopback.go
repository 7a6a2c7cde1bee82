package cli

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
)

//go:embed templates/callback.html
var callbackPage []byte

var errLoginTimeout = errors.New("timed out waiting for the browser to return")

// loopback receives the browser redirect on the redirect URI. The fragment
// is never sent to a server, so the landing page posts it back.
type loopback struct {
	callback *authsdk.Callback
	received chan struct{}
	once     sync.Once

	ln     net.Listener
	server *http.Server
}

func startLoopback(redirectURI string, cb *authsdk.Callback) (*loopback, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect URI must be an http loopback address, got %q", redirectURI)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server on %s: %w (is another instance running?)", u.Host, err)
	}

	l := &loopback{
		callback: cb,
		received: make(chan struct{}),
		ln:       ln,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, l.serveLanding)
	mux.HandleFunc("POST /fragment", l.serveFragment)
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 3 * time.Second}

	go func() { _ = l.server.Serve(ln) }()
	return l, nil
}

// Addr is the address the server listens on.
func (l *loopback) Addr() string { return l.ln.Addr().String() }

func (l *loopback) Close() error { return l.server.Close() }

func (l *loopback) serveLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(callbackPage)
}

func (l *loopback) serveFragment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	fragment := r.PostForm.Get("fragment")
	if fragment == "" {
		http.Error(w, "missing fragment", http.StatusBadRequest)
		return
	}

	l.once.Do(func() {
		l.callback.SetFragment(fragment)
		close(l.received)
	})
	w.WriteHeader(http.StatusNoContent)
}

// Wait blocks until the fragment arrives.
func (l *loopback) Wait(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.received:
		return nil
	case <-timer.C:
		return errLoginTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
