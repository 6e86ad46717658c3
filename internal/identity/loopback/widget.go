package loopback

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"goose/internal/identity"
	"goose/pkg/logging"
)

const maxEventBytes = 64 << 10

// page is one served sign-in page and the configuration it was created
// under.
type page struct {
	mode   string
	config identity.Config
	notify func(identity.Notification)
	button identity.ButtonOptions
}

type widget struct {
	host *Host

	mu     sync.Mutex
	config identity.Config
	pages  map[string]*page
}

func (w *widget) Initialize(cfg identity.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.config = cfg
}

func (w *widget) Prompt(notify func(identity.Notification)) {
	nonce := newNonce()
	w.mu.Lock()
	w.pages[nonce] = &page{mode: modePrompt, config: w.config, notify: notify}
	w.mu.Unlock()

	w.host.open(modePrompt, nonce)
}

func (w *widget) RenderButton(c identity.Container, opts identity.ButtonOptions) error {
	ct, ok := c.(*container)
	if !ok || ct.host != w.host {
		return errors.New("container was not mounted by this host")
	}

	nonce := newNonce()
	w.mu.Lock()
	w.pages[nonce] = &page{mode: modeButton, config: w.config, button: opts}
	w.mu.Unlock()

	ct.setNonce(nonce)
	logging.Debug("Loopback", "Sign-in button page ready")
	return nil
}

func (w *widget) lookup(nonce string) *page {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pages[nonce]
}

func (w *widget) remove(nonce string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pages, nonce)
}

type container struct {
	host *Host

	mu    sync.Mutex
	nonce string
}

func (c *container) setNonce(nonce string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonce = nonce
}

func (c *container) QueryButton() (identity.Button, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nonce == "" {
		return nil, false
	}
	return button{host: c.host, nonce: c.nonce}, true
}

// button opens the page rendering the provider's own button. The user's
// click on that page is the genuine click the provider requires.
type button struct {
	host  *Host
	nonce string
}

func (b button) Click() {
	b.host.open(modeButton, b.nonce)
}

type notification struct {
	notDisplayed bool
	skipped      bool
	reason       string
}

func (n notification) IsNotDisplayed() bool       { return n.notDisplayed }
func (n notification) IsSkippedMoment() bool      { return n.skipped }
func (n notification) NotDisplayedReason() string { return n.reason }

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxEventBytes)).Decode(v)
}
