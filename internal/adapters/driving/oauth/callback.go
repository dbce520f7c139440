// Package oauth provides the loopback server that captures an OAuth
// redirect for the CLI. It hands the code and state to the connection
// manager, which validates the state.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Callback is the query of a captured redirect.
type Callback struct {
	Code  string
	State string
}

// CallbackServer receives one OAuth redirect on a loopback address.
type CallbackServer struct {
	mu       sync.Mutex
	addr     string
	path     string
	scheme   string
	server   *http.Server
	listener net.Listener

	resultCh chan Callback
	errCh    chan error
}

// NewCallbackServer creates a server for redirectURI, which must be an http
// URL on a loopback host. Port 0 picks a free port.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI %q: loopback capture requires http", redirectURI)
	}

	host := u.Hostname()
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return nil, fmt.Errorf("redirect URI %q: host is not a loopback address", redirectURI)
		}
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	return &CallbackServer{
		addr:     net.JoinHostPort(host, port),
		path:     path,
		scheme:   u.Scheme,
		resultCh: make(chan Callback, 1),
		errCh:    make(chan error, 1),
	}, nil
}

// Start begins listening.
func (s *CallbackServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("callback server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.report(nil, err)
		}
	}()
	return nil
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		s.report(nil, fmt.Errorf("authorization denied: %s %s", errParam, desc))
		fmt.Fprint(w, resultPage("Authorization failed", desc))
		return
	}

	code := q.Get("code")
	if code == "" {
		// Ignore stray requests such as favicon probes.
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	s.report(&Callback{Code: code, State: q.Get("state")}, nil)
	fmt.Fprint(w, resultPage("Authorization received", "You can close this window and return to the terminal."))
}

// report delivers the first outcome; later ones are dropped.
func (s *CallbackServer) report(cb *Callback, err error) {
	if err != nil {
		select {
		case s.errCh <- err:
		default:
		}
		return
	}
	select {
	case s.resultCh <- *cb:
	default:
	}
}

// Wait blocks until a callback arrives, the vendor reports an error or ctx
// is done.
func (s *CallbackServer) Wait(ctx context.Context) (Callback, error) {
	select {
	case cb := <-s.resultCh:
		return cb, nil
	case err := <-s.errCh:
		return Callback{}, err
	case <-ctx.Done():
		return Callback{}, fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// URL returns the redirect URL the server answers on.
func (s *CallbackServer) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheme + "://" + s.addr + s.path
}

func resultPage(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>sociallink</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #FAFAFA; }
.box { text-align: center; background: white; padding: 48px 64px; border-radius: 16px; border: 1px solid #C7C8CC; }
h1 { color: #333F50; margin: 0 0 8px 0; font-size: 24px; }
p { color: #7B8088; margin: 0; }
</style>
</head>
<body><div class="box"><h1>%s</h1><p>%s</p></div></body>
</html>`, html.EscapeString(title), html.EscapeString(message))
}
