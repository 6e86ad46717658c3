//go:build js && wasm

// Command web is the browser build of the goose session core. It exposes
// a small promise-based API on globalThis.goose for the page to drive:
//
//	await goose.start()            // validate the stored session
//	await goose.login()            // silent prompt, then the sign-in button
//	await goose.logout()
//	goose.snapshot()
//	const stop = goose.subscribe(snap => render(snap))
package main

import (
	"context"
	"os"
	"syscall/js"

	"goose/internal/gateway"
	"goose/internal/identity"
	"goose/internal/identity/gsi"
	"goose/internal/session"
	"goose/internal/store"
	"goose/pkg/logging"
)

func main() {
	global := js.Global()
	settings := global.Get("gooseConfig")
	endpoint := stringSetting(settings, "endpoint", global.Get("location").Get("origin").String())
	clientID := stringSetting(settings, "clientID", "")
	scriptURL := stringSetting(settings, "scriptURL", "https://accounts.google.com/gsi/client")

	logging.InitForCLI(logging.ParseLevel(stringSetting(settings, "logLevel", "info")), os.Stdout)

	st := store.NewLocalStorage()
	client := gateway.New(endpoint, st)
	controller := session.NewController(client, st)
	acquirer := identity.NewAcquirer(gsi.New(), identity.Options{
		ClientID:  clientID,
		ScriptURL: scriptURL,
	})

	api := map[string]interface{}{
		"start": js.FuncOf(func(js.Value, []js.Value) interface{} {
			return promise(func() (interface{}, error) {
				return snapshotValue(controller.Start(context.Background())), nil
			})
		}),
		"login": js.FuncOf(func(js.Value, []js.Value) interface{} {
			return promise(func() (interface{}, error) {
				ctx := context.Background()
				assertion, err := acquirer.Acquire(ctx)
				if err != nil {
					return nil, err
				}
				user, err := controller.LoginWithIdentityAssertion(ctx, assertion)
				if err != nil {
					return nil, err
				}
				return profileValue(user), nil
			})
		}),
		"logout": js.FuncOf(func(js.Value, []js.Value) interface{} {
			return promise(func() (interface{}, error) {
				controller.Logout(context.Background())
				return nil, nil
			})
		}),
		"snapshot": js.FuncOf(func(js.Value, []js.Value) interface{} {
			return snapshotValue(controller.Snapshot())
		}),
		"subscribe": js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
			if len(args) == 0 || args[0].Type() != js.TypeFunction {
				return js.Undefined()
			}
			fn := args[0]
			unsubscribe := controller.Subscribe(func(s session.Snapshot) {
				fn.Invoke(snapshotValue(s))
			})
			var release js.Func
			release = js.FuncOf(func(js.Value, []js.Value) interface{} {
				unsubscribe()
				release.Release()
				return nil
			})
			return release
		}),
	}
	global.Set("goose", js.ValueOf(api))

	logging.Info("Web", "goose session core ready (endpoint %s)", endpoint)
	select {}
}

func stringSetting(settings js.Value, key, fallback string) string {
	if settings.Type() != js.TypeObject {
		return fallback
	}
	v := settings.Get(key)
	if v.Type() != js.TypeString || v.String() == "" {
		return fallback
	}
	return v.String()
}

// promise runs fn on its own goroutine; blocking inside a js.Func
// callback would deadlock the event loop.
func promise(fn func() (interface{}, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(_ js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			v, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

func snapshotValue(s session.Snapshot) interface{} {
	return map[string]interface{}{
		"state":         s.State.String(),
		"loading":       s.Loading,
		"authenticated": s.Authenticated,
		"user":          profileValue(s.User),
	}
}

func profileValue(p *session.UserProfile) interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}{
		"id":       p.ID,
		"email":    p.Email,
		"googleId": p.ExternalIdentityID,
		"name":     p.DisplayName,
	}
}
