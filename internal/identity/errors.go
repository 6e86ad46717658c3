package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when an attempt is started before the widget
	// script has loaded.
	ErrNotReady = errors.New("identity widget is not loaded")

	// ErrNotInitialized is returned by TriggerExplicit when
	// PrepareExplicitTrigger has not run.
	ErrNotInitialized = errors.New("explicit sign-in was not prepared")

	// ErrButtonNotFound means the provider rendered no button element into
	// the hidden container.
	ErrButtonNotFound = errors.New("provider sign-in button not found")

	// ErrEmptyCredential means the provider invoked the callback without an
	// assertion.
	ErrEmptyCredential = errors.New("provider returned an empty credential")
)

// ScriptLoadError indicates the provider script could not be loaded.
type ScriptLoadError struct {
	URL string
	Err error
}

func (e *ScriptLoadError) Error() string {
	return fmt.Sprintf("failed to load identity script %s: %v", e.URL, e.Err)
}

func (e *ScriptLoadError) Unwrap() error {
	return e.Err
}

// IsScriptLoadError checks if err is or wraps a ScriptLoadError.
func IsScriptLoadError(err error) bool {
	var target *ScriptLoadError
	return errors.As(err, &target)
}

// ErrSuperseded is returned to a caller whose explicit attempt was
// replaced by a newer one before it completed.
var ErrSuperseded = errors.New("sign-in attempt superseded by a newer attempt")
