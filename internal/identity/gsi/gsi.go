//go:build js && wasm

// Package gsi hosts the identity widget inside a browser page, driving the
// provider's google.accounts.id runtime through syscall/js.
package gsi

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"goose/internal/identity"
)

// Host is an identity.Host for the page this program runs in.
type Host struct {
	document js.Value
}

var _ identity.Host = (*Host)(nil)

// New returns a Host bound to the global document.
func New() *Host {
	return &Host{document: js.Global().Get("document")}
}

// LoadScript appends a script element for src and waits for it to load.
func (h *Host) LoadScript(ctx context.Context, src string) (identity.Widget, error) {
	if w, ok := existingWidget(); ok {
		return w, nil
	}

	done := make(chan error, 1)
	script := h.document.Call("createElement", "script")
	script.Set("src", src)
	script.Set("async", true)
	script.Set("defer", true)

	var onload, onerror js.Func
	onload = js.FuncOf(func(js.Value, []js.Value) interface{} {
		done <- nil
		return nil
	})
	onerror = js.FuncOf(func(js.Value, []js.Value) interface{} {
		done <- errors.New("script element reported an error")
		return nil
	})
	defer onload.Release()
	defer onerror.Release()

	script.Set("onload", onload)
	script.Set("onerror", onerror)
	h.document.Get("head").Call("appendChild", script)

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	w, ok := existingWidget()
	if !ok {
		return nil, errors.New("google.accounts.id is not defined after load")
	}
	return w, nil
}

func existingWidget() (*widget, bool) {
	google := js.Global().Get("google")
	if google.IsUndefined() || google.IsNull() {
		return nil, false
	}
	id := google.Get("accounts").Get("id")
	if id.IsUndefined() {
		return nil, false
	}
	return &widget{id: id}, true
}

// MountHidden attaches an off-screen div. It must stay attached and
// interactive so the provider accepts the click.
func (h *Host) MountHidden() (identity.Container, error) {
	div := h.document.Call("createElement", "div")
	style := div.Get("style")
	style.Set("position", "fixed")
	style.Set("top", "-9999px")
	style.Set("left", "-9999px")
	style.Set("visibility", "hidden")
	h.document.Get("body").Call("appendChild", div)
	return &container{el: div}, nil
}

type widget struct {
	id js.Value

	// Only the latest callback is referenced by the provider.
	callback js.Func
	notify   js.Func
}

func (w *widget) Initialize(cfg identity.Config) {
	prev := w.callback
	w.callback = js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		var credential string
		if len(args) > 0 {
			if c := args[0].Get("credential"); c.Type() == js.TypeString {
				credential = c.String()
			}
		}
		if cfg.Callback != nil {
			go cfg.Callback(identity.Response{Credential: credential})
		}
		return nil
	})

	settings := map[string]interface{}{
		"client_id": cfg.ClientID,
		"callback":  w.callback,
	}
	if cfg.LoginHint != "" {
		settings["login_hint"] = cfg.LoginHint
	}
	w.id.Call("initialize", settings)
	if prev.Truthy() {
		prev.Release()
	}
}

func (w *widget) Prompt(notify func(identity.Notification)) {
	prev := w.notify
	w.notify = js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		if len(args) > 0 && notify != nil {
			n := readNotification(args[0])
			go notify(n)
		}
		return nil
	})
	w.id.Call("prompt", w.notify)
	if prev.Truthy() {
		prev.Release()
	}
}

func (w *widget) RenderButton(c identity.Container, opts identity.ButtonOptions) (err error) {
	ct, ok := c.(*container)
	if !ok {
		return errors.New("container was not mounted by this host")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderButton: %v", r)
		}
	}()
	w.id.Call("renderButton", ct.el, map[string]interface{}{
		"type":  opts.Type,
		"theme": opts.Theme,
		"size":  opts.Size,
		"text":  opts.Text,
	})
	return nil
}

type notification struct {
	notDisplayed bool
	skipped      bool
	reason       string
}

func (n notification) IsNotDisplayed() bool       { return n.notDisplayed }
func (n notification) IsSkippedMoment() bool      { return n.skipped }
func (n notification) NotDisplayedReason() string { return n.reason }

// readNotification copies the moment notification while the JS value is
// still valid.
func readNotification(v js.Value) notification {
	n := notification{
		notDisplayed: v.Call("isNotDisplayed").Bool(),
		skipped:      v.Call("isSkippedMoment").Bool(),
	}
	if n.notDisplayed {
		n.reason = v.Call("getNotDisplayedReason").String()
	}
	return n
}

type container struct {
	el js.Value
}

func (c *container) QueryButton() (identity.Button, bool) {
	el := c.el.Call("querySelector", "div[role='button']")
	if el.IsNull() || el.IsUndefined() {
		return nil, false
	}
	return button{el: el}, true
}

type button struct {
	el js.Value
}

func (b button) Click() {
	b.el.Call("click")
}
