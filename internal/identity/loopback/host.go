package loopback

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"

	"goose/internal/identity"
	"goose/pkg/logging"
)

//go:embed templates/page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Funcs(sprig.FuncMap()).Parse(pageHTML))

const (
	modePrompt = "prompt"
	modeButton = "button"
)

// Options configures a Host.
type Options struct {
	// Port to listen on. 0 picks a free port.
	Port int

	// HTTPClient checks that the provider script is reachable.
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Open shows a page to the user. Defaults to OpenBrowser.
	Open func(url string) error

	// Endpoint is the backend being signed in to, shown on the page.
	Endpoint string
}

// Host is an identity.Host backed by a local HTTP server and the user's
// browser.
type Host struct {
	opts Options

	mu        sync.Mutex
	server    *http.Server
	listener  net.Listener
	baseURL   string
	scriptURL string
	widget    *widget
}

var _ identity.Host = (*Host)(nil)

// New creates a Host. The server starts on the first LoadScript.
func New(opts Options) *Host {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Open == nil {
		opts.Open = OpenBrowser
	}
	return &Host{opts: opts}
}

// LoadScript verifies the provider script is reachable and starts the
// local server that will serve it to the browser.
func (h *Host) LoadScript(ctx context.Context, src string) (identity.Widget, error) {
	if err := h.checkScript(ctx, src); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.scriptURL = src
	if h.server == nil {
		if err := h.startLocked(); err != nil {
			return nil, err
		}
	}
	if h.widget == nil {
		h.widget = &widget{host: h, pages: make(map[string]*page)}
	}
	return h.widget, nil
}

func (h *Host) checkScript(ctx context.Context, src string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := h.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// startLocked REQUIRES h.mu held.
func (h *Host) startLocked() error {
	addr := fmt.Sprintf("127.0.0.1:%d", h.opts.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start sign-in server on %s: %w", addr, err)
	}

	h.listener = listener
	h.baseURL = fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /prompt/{nonce}", h.handlePage(modePrompt))
	mux.HandleFunc("GET /button/{nonce}", h.handlePage(modeButton))
	mux.HandleFunc("POST /credential", h.handleCredential)
	mux.HandleFunc("POST /notification", h.handleNotification)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.server = srv

	// Close may clear h.server before this goroutine runs.
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Loopback", err, "Sign-in server stopped")
		}
	}()

	logging.Debug("Loopback", "Sign-in server listening on %s", h.baseURL)
	return nil
}

// URL returns the server's base URL, or "" before LoadScript.
func (h *Host) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.baseURL
}

// MountHidden returns a container whose button opens the button page.
func (h *Host) MountHidden() (identity.Container, error) {
	return &container{host: h}, nil
}

// Close stops the local server. A later LoadScript starts a new one.
func (h *Host) Close() error {
	h.mu.Lock()
	server, listener := h.server, h.listener
	h.server, h.listener = nil, nil
	h.baseURL = ""
	h.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(ctx)
	// Shutdown only closes listeners Serve has already picked up.
	_ = listener.Close()
	return err
}

func (h *Host) open(mode, nonce string) {
	target := fmt.Sprintf("%s/%s/%s", h.URL(), mode, nonce)
	logging.Info("Loopback", "Opening %s", target)
	if err := h.opts.Open(target); err != nil {
		logging.Warn("Loopback", "Could not open a browser (%v). Visit %s to continue", err, target)
	}
}

func setSecurityHeaders(w http.ResponseWriter, scriptOrigin string) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", fmt.Sprintf(
		"default-src 'self'; script-src 'self' 'unsafe-inline' %[1]s; frame-src %[1]s; connect-src 'self' %[1]s; style-src 'self' 'unsafe-inline' %[1]s",
		scriptOrigin))
	w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
	w.Header().Set("Cache-Control", "no-store")
}

func origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (h *Host) handlePage(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nonce := r.PathValue("nonce")

		h.mu.Lock()
		wdg := h.widget
		scriptURL := h.scriptURL
		h.mu.Unlock()

		var p *page
		if wdg != nil {
			p = wdg.lookup(nonce)
		}
		if p == nil || p.mode != mode {
			http.NotFound(w, r)
			return
		}

		setSecurityHeaders(w, origin(scriptURL))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		data := map[string]interface{}{
			"Mode":      p.mode,
			"Nonce":     nonce,
			"ClientID":  p.config.ClientID,
			"LoginHint": p.config.LoginHint,
			"ScriptURL": scriptURL,
			"Endpoint":  h.opts.Endpoint,
			"Button":    p.button,
		}
		if err := pageTemplate.Execute(w, data); err != nil {
			logging.Error("Loopback", err, "Failed to render sign-in page")
		}
	}
}

// sameOrigin rejects cross-site posts. Browsers always send Origin on
// fetch POSTs; non-browser clients may omit it.
func (h *Host) sameOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || o == h.URL()
}

type credentialRequest struct {
	Nonce      string `json:"nonce"`
	Credential string `json:"credential"`
}

type notificationRequest struct {
	Nonce        string `json:"nonce"`
	NotDisplayed bool   `json:"notDisplayed"`
	Skipped      bool   `json:"skipped"`
	Reason       string `json:"reason"`
}

func (h *Host) handleCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !h.decodeEvent(w, r, &req) {
		return
	}

	p := h.consume(req.Nonce)
	if p == nil {
		logging.Audit(logging.AuditEvent{
			Event:     "signin_event_rejected",
			Subsystem: "Loopback",
			Outcome:   "failure",
		})
		http.Error(w, "Unknown or expired sign-in page", http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	if p.config.Callback != nil {
		p.config.Callback(identity.Response{Credential: req.Credential})
	}
}

func (h *Host) handleNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !h.decodeEvent(w, r, &req) {
		return
	}

	h.mu.Lock()
	wdg := h.widget
	h.mu.Unlock()

	var p *page
	if wdg != nil {
		p = wdg.lookup(req.Nonce)
	}
	if p == nil || p.mode != modePrompt {
		http.Error(w, "Unknown or expired sign-in page", http.StatusForbidden)
		return
	}

	if req.NotDisplayed || req.Skipped {
		wdg.remove(req.Nonce)
	}

	w.WriteHeader(http.StatusNoContent)
	if p.notify != nil {
		p.notify(notification{notDisplayed: req.NotDisplayed, skipped: req.Skipped, reason: req.Reason})
	}
}

func (h *Host) decodeEvent(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	w.Header().Set("Cache-Control", "no-store")
	if !h.sameOrigin(r) {
		http.Error(w, "Cross-origin request rejected", http.StatusForbidden)
		return false
	}
	if err := decodeJSON(r, v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Host) consume(nonce string) *page {
	h.mu.Lock()
	wdg := h.widget
	h.mu.Unlock()
	if wdg == nil {
		return nil
	}
	p := wdg.lookup(nonce)
	if p != nil {
		wdg.remove(nonce)
	}
	return p
}

func newNonce() string {
	return uuid.NewString()
}
