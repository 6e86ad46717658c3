// Package identity obtains identity assertions from an external sign-in
// widget.
//
// The widget itself lives outside this process (a browser page, usually)
// and is reached through a Host. An Acquirer loads the widget once, then
// runs independent acquisition attempts against it in one of two modes:
//
//   - silent: the provider's non-interactive one-tap prompt. The provider
//     may decline to show it, which is a normal outcome.
//   - explicit: the provider's own consent button, rendered into a hidden
//     container and clicked programmatically.
//
// Every attempt carries its own single-resolution completion. A callback
// registered by one attempt can never resolve another.
//
// Acquire is the mode-selection policy used by callers that do not care
// which mode ran: silent first, explicit when the silent prompt is
// skipped or not displayed.
package identity
