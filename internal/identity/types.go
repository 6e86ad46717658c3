package identity

import "context"

// Response is what the provider hands the registered callback.
type Response struct {
	// Credential is the signed identity assertion. Opaque to this package.
	Credential string
}

// Config configures the widget for one attempt.
type Config struct {
	ClientID string
	// LoginHint preselects an account in the provider UI. Optional.
	LoginHint string
	Callback  func(Response)
}

// Notification reports the outcome of a silent prompt.
type Notification interface {
	IsNotDisplayed() bool
	IsSkippedMoment() bool
	NotDisplayedReason() string
}

// ButtonOptions are passed through to the provider's button renderer.
type ButtonOptions struct {
	Type  string `json:"type,omitempty"`
	Theme string `json:"theme,omitempty"`
	Size  string `json:"size,omitempty"`
	Text  string `json:"text,omitempty"`
}

// DefaultButtonOptions renders a standard "Sign in with" button.
var DefaultButtonOptions = ButtonOptions{
	Type:  "standard",
	Theme: "outline",
	Size:  "large",
	Text:  "signin_with",
}

// Widget is the provider's sign-in runtime once its script has loaded.
type Widget interface {
	// Initialize replaces the widget configuration, including the callback.
	Initialize(cfg Config)

	// Prompt requests the silent one-tap prompt.
	Prompt(notify func(Notification))

	// RenderButton renders the provider's consent button into c.
	RenderButton(c Container, opts ButtonOptions) error
}

// Container is an attached but visually hidden element holding the
// provider button.
type Container interface {
	// QueryButton finds the provider's interactive button element.
	QueryButton() (Button, bool)
}

// Button is the provider's first-party button element.
type Button interface {
	Click()
}

// Host is the environment the widget runs in.
type Host interface {
	// LoadScript loads the provider runtime from src.
	LoadScript(ctx context.Context, src string) (Widget, error)

	// MountHidden attaches a new hidden container.
	MountHidden() (Container, error)
}

// LoaderState is the widget loader's lifecycle.
type LoaderState int

const (
	// StateUnloaded means no script load has succeeded yet.
	StateUnloaded LoaderState = iota
	// StateLoading means a load is in flight.
	StateLoading
	// StateReady means the widget is available for attempts.
	StateReady
)

func (s LoaderState) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}
