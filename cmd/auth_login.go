package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"goose/internal/cli"
	"goose/internal/config"
	"goose/internal/identity"
	"goose/internal/identity/loopback"
)

// Sign-in modes for auth login.
const (
	loginModeAuto     = "auto"
	loginModeSilent   = "silent"
	loginModeExplicit = "explicit"
	loginModePaste    = "paste"
)

var errSilentUnavailable = errors.New("silent sign-in was not available; try --mode explicit")

// Login-specific flags
var (
	loginMode  string
	loginForce bool
	loginHint  string
)

// identityHost is an identity.Host the login command owns and closes.
type identityHost interface {
	identity.Host
	Close() error
}

// newIdentityHost builds the browser host for a login. Replaced in tests.
var newIdentityHost = func(cfg config.GooseConfig) identityHost {
	return loopback.New(loopback.Options{Port: cfg.CallbackPort, Endpoint: cfg.Endpoint})
}

// readAssertion prompts for a pasted assertion. Replaced in tests.
var readAssertion = cli.ReadSecret

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to goose",
	Long: `Sign in to goose through your identity provider.

The stored session is validated first; if it is still good nothing else
happens unless --force is given.

Modes:
  auto      try the provider's one-tap prompt, fall back to its sign-in button (default)
  silent    one-tap prompt only
  explicit  sign-in button only
  paste     paste an identity assertion obtained elsewhere

Examples:
  goose auth login
  goose auth login --mode explicit
  goose auth login --login-hint ada@example.com
  goose auth login --mode paste`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().StringVar(&loginMode, "mode", loginModeAuto, "sign-in mode: auto, silent, explicit or paste")
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "sign in again even if the stored session is valid")
	authLoginCmd.Flags().StringVar(&loginHint, "login-hint", "", "email address the provider should preselect (default: the last signed-in user)")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	switch loginMode {
	case loginModeAuto, loginModeSilent, loginModeExplicit, loginModePaste:
	default:
		return fmt.Errorf("unknown sign-in mode %q (want auto, silent, explicit or paste)", loginMode)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	snap := a.session.Start(ctx)
	if snap.Authenticated && !loginForce {
		a.printf("Already signed in as %s\n", snap.User.Email)
		return nil
	}

	if loginMode != loginModePaste && a.cfg.ClientID == "" {
		return errors.New("clientID is not configured; set it in config.yaml or use --mode paste")
	}

	assertion, err := a.acquireAssertion(ctx, loginMode)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &cli.AuthFailedError{Endpoint: a.cfg.Endpoint, Reason: err}
	}

	user, err := a.session.LoginWithIdentityAssertion(ctx, assertion)
	if err != nil {
		var connErr *cli.ConnectionError
		if classified := cli.ClassifyError(err, a.cfg.Endpoint); errors.As(classified, &connErr) {
			return connErr
		}
		return &cli.AuthFailedError{Endpoint: a.cfg.Endpoint, Reason: err}
	}

	a.printf("%s\n", cli.Success("Signed in as %s", user.Email))
	return nil
}

func (a *app) acquireAssertion(ctx context.Context, mode string) (string, error) {
	if mode == loginModePaste {
		return readAssertion("Identity assertion: ")
	}

	host := newIdentityHost(a.cfg)
	defer host.Close()

	acq := identity.NewAcquirer(host, identity.Options{
		ClientID:  a.cfg.ClientID,
		ScriptURL: a.cfg.ScriptURL,
		LoginHint: a.accountHint(),
	})

	progress := cli.StartProgress(a.err, "Waiting for sign-in in your browser...", a.quiet)
	defer progress.Stop("")

	switch mode {
	case loginModeSilent:
		credential, ok, err := acq.PromptSilent(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errSilentUnavailable
		}
		return credential, nil
	case loginModeExplicit:
		return acquireExplicit(ctx, acq)
	default:
		return acq.Acquire(ctx)
	}
}

// accountHint is the --login-hint flag, or the cached profile's email.
func (a *app) accountHint() string {
	if loginHint != "" {
		return loginHint
	}
	if p, ok := a.session.CachedProfile(); ok {
		return p.Email
	}
	return ""
}

func acquireExplicit(ctx context.Context, acq *identity.Acquirer) (string, error) {
	if err := acq.Initialize(ctx); err != nil {
		return "", err
	}

	credentials := make(chan string, 1)
	failures := make(chan error, 1)
	err := acq.PrepareExplicitTrigger(
		func(c string) { credentials <- c },
		func(err error) { failures <- err },
	)
	if err != nil {
		return "", err
	}

	select {
	case err := <-failures:
		return "", err
	default:
	}

	if err := acq.TriggerExplicit(); err != nil {
		return "", err
	}

	select {
	case c := <-credentials:
		return c, nil
	case err := <-failures:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
