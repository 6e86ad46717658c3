package identity

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"goose/pkg/logging"
)

// Options configures an Acquirer.
type Options struct {
	// ClientID is the application identifier registered with the provider.
	ClientID string

	// ScriptURL is where the provider runtime is loaded from.
	ScriptURL string

	// Button customizes the hidden consent button. Zero value means
	// DefaultButtonOptions.
	Button ButtonOptions

	// LoginHint is an email address the provider should preselect.
	LoginHint string
}

// Acquirer runs identity acquisition attempts against one Host.
type Acquirer struct {
	host Host
	opts Options

	loadGroup singleflight.Group

	mu        sync.Mutex
	state     LoaderState
	widget    Widget
	container Container
	explicit  *attempt

	// mountMu serializes container creation so it happens once.
	mountMu sync.Mutex
}

// NewAcquirer creates an Acquirer. No script is loaded until Initialize.
func NewAcquirer(host Host, opts Options) *Acquirer {
	if opts.Button == (ButtonOptions{}) {
		opts.Button = DefaultButtonOptions
	}
	return &Acquirer{
		host:  host,
		opts:  opts,
		state: StateUnloaded,
	}
}

// State returns the loader state.
func (a *Acquirer) State() LoaderState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Initialize loads the provider script. Concurrent callers share one load;
// once it has succeeded every later call returns nil immediately. A failed
// load leaves the loader Unloaded so the next call tries again.
//
// The load runs under the context of the caller that started it. Other
// callers stop waiting when their own ctx is done, but do not cancel it.
func (a *Acquirer) Initialize(ctx context.Context) error {
	if a.State() == StateReady {
		return nil
	}

	ch := a.loadGroup.DoChan("load", func() (interface{}, error) {
		a.mu.Lock()
		if a.state == StateReady {
			a.mu.Unlock()
			return nil, nil
		}
		a.state = StateLoading
		a.mu.Unlock()

		logging.Debug("Identity", "Loading identity script from %s", a.opts.ScriptURL)
		widget, err := a.host.LoadScript(ctx, a.opts.ScriptURL)

		a.mu.Lock()
		defer a.mu.Unlock()
		if err != nil {
			a.state = StateUnloaded
			return nil, &ScriptLoadError{URL: a.opts.ScriptURL, Err: err}
		}
		a.widget = widget
		a.state = StateReady
		logging.Debug("Identity", "Identity script loaded")
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Acquirer) readyWidget() (Widget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateReady {
		return nil, ErrNotReady
	}
	return a.widget, nil
}

// PromptSilent runs one silent attempt. It loads the script first if
// needed. ok is false when the provider did not display the prompt or the
// user skipped it; that is not an error and the caller should fall back to
// the explicit mode.
func (a *Acquirer) PromptSilent(ctx context.Context) (credential string, ok bool, err error) {
	if err := a.Initialize(ctx); err != nil {
		return "", false, err
	}
	widget, err := a.readyWidget()
	if err != nil {
		return "", false, err
	}

	at := newAttempt()
	widget.Initialize(Config{
		ClientID:  a.opts.ClientID,
		LoginHint: a.opts.LoginHint,
		Callback: func(r Response) {
			if r.Credential == "" {
				at.resolve("", false, ErrEmptyCredential)
				return
			}
			at.resolve(r.Credential, true, nil)
		},
	})

	logging.Debug("Identity", "Requesting silent prompt (attempt %s)", at.id)
	widget.Prompt(func(n Notification) {
		switch {
		case n.IsNotDisplayed():
			logging.Debug("Identity", "Silent prompt not displayed: %s", n.NotDisplayedReason())
			at.resolve("", false, nil)
		case n.IsSkippedMoment():
			logging.Debug("Identity", "Silent prompt skipped")
			at.resolve("", false, nil)
		}
	})

	select {
	case <-at.done:
		return at.credential, at.ok, at.err
	case <-ctx.Done():
		at.abandon()
		return "", false, ctx.Err()
	}
}

// PrepareExplicitTrigger configures the widget for an explicit attempt and
// renders the provider button into the hidden container, mounting the
// container on first use. onSuccess receives the assertion; onError
// receives render failures. At most one of them is called, at most once.
//
// Preparing again supersedes the previous explicit attempt: its callbacks
// will not fire.
func (a *Acquirer) PrepareExplicitTrigger(onSuccess func(string), onError func(error)) error {
	_, err := a.prepareExplicit(onSuccess, onError)
	return err
}

func (a *Acquirer) prepareExplicit(onSuccess func(string), onError func(error)) (*attempt, error) {
	widget, err := a.readyWidget()
	if err != nil {
		return nil, err
	}

	container, err := a.hiddenContainer()
	if err != nil {
		return nil, err
	}

	at := newAttempt()
	a.mu.Lock()
	previous := a.explicit
	a.explicit = at
	a.mu.Unlock()
	if previous != nil {
		previous.resolve("", false, ErrSuperseded)
	}

	widget.Initialize(Config{
		ClientID:  a.opts.ClientID,
		LoginHint: a.opts.LoginHint,
		Callback: func(r Response) {
			if r.Credential == "" {
				if at.resolve("", false, ErrEmptyCredential) && onError != nil {
					onError(ErrEmptyCredential)
				}
				return
			}
			if at.resolve(r.Credential, true, nil) && onSuccess != nil {
				onSuccess(r.Credential)
			}
		},
	})

	if err := widget.RenderButton(container, a.opts.Button); err != nil {
		renderErr := fmt.Errorf("failed to render sign-in button: %w", err)
		if at.resolve("", false, renderErr) && onError != nil {
			onError(renderErr)
		}
		return at, nil
	}

	logging.Debug("Identity", "Explicit sign-in prepared (attempt %s)", at.id)
	return at, nil
}

func (a *Acquirer) hiddenContainer() (Container, error) {
	a.mountMu.Lock()
	defer a.mountMu.Unlock()

	a.mu.Lock()
	c := a.container
	a.mu.Unlock()
	if c != nil {
		return c, nil
	}

	c, err := a.host.MountHidden()
	if err != nil {
		return nil, fmt.Errorf("failed to mount hidden container: %w", err)
	}

	a.mu.Lock()
	a.container = c
	a.mu.Unlock()
	return c, nil
}

// TriggerExplicit clicks the hidden provider button, starting the
// provider's interactive consent flow.
func (a *Acquirer) TriggerExplicit() error {
	a.mu.Lock()
	container := a.container
	prepared := a.explicit != nil
	a.mu.Unlock()

	if !prepared || container == nil {
		return ErrNotInitialized
	}

	button, ok := container.QueryButton()
	if !ok {
		return ErrButtonNotFound
	}
	button.Click()
	return nil
}

// Acquire obtains one assertion: silent prompt first, explicit button when
// the silent prompt is skipped or not displayed.
func (a *Acquirer) Acquire(ctx context.Context) (string, error) {
	credential, ok, err := a.PromptSilent(ctx)
	if err != nil {
		return "", err
	}
	if ok {
		return credential, nil
	}

	logging.Info("Identity", "Silent sign-in unavailable, falling back to the sign-in button")

	at, err := a.prepareExplicit(nil, nil)
	if err != nil {
		return "", err
	}

	select {
	case <-at.done:
		// Render failed or a newer attempt took over.
		return at.result()
	default:
	}

	if err := a.TriggerExplicit(); err != nil {
		at.abandon()
		return "", err
	}

	select {
	case <-at.done:
		return at.result()
	case <-ctx.Done():
		at.abandon()
		return "", ctx.Err()
	}
}
