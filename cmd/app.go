package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"goose/internal/cli"
	"goose/internal/config"
	"goose/internal/gateway"
	"goose/internal/session"
	"goose/internal/store"
	"goose/pkg/logging"
)

// app is the per-invocation wiring: config, store, gateway and the
// session controller on top of them.
type app struct {
	cfg     config.GooseConfig
	store   store.Store
	client  *gateway.Client
	session *session.Controller

	out   io.Writer
	err   io.Writer
	quiet bool
}

func loadConfig() (config.GooseConfig, error) {
	dir := configDir
	if dir == "" {
		var err error
		dir, err = config.GetDefaultConfigPath()
		if err != nil {
			return config.GooseConfig{}, err
		}
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return config.GooseConfig{}, err
	}
	if endpointFlag != "" {
		cfg.Endpoint = endpointFlag
	}
	if err := cfg.Validate(); err != nil {
		return config.GooseConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if debugFlag {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	client := gateway.New(cfg.Endpoint, st, gateway.WithTracing(cfg.Tracing))

	return &app{
		cfg:     cfg,
		store:   st,
		client:  client,
		session: session.NewController(client, st),
		out:     cmd.OutOrStdout(),
		err:     cmd.ErrOrStderr(),
		quiet:   quietFlag,
	}, nil
}

// Close releases the store's connections, if it has any.
func (a *app) Close() {
	if c, ok := a.store.(io.Closer); ok {
		_ = c.Close()
	}
}

// printf prints unless --quiet is set. Use it for progress and
// confirmations, never for requested data.
func (a *app) printf(format string, args ...interface{}) {
	if !a.quiet {
		fmt.Fprintf(a.out, format, args...)
	}
}

// requireSession validates the stored session and fails with
// AuthRequiredError when there is none.
func (a *app) requireSession(cmd *cobra.Command) (*session.UserProfile, error) {
	snap := a.session.Start(cmd.Context())
	if !snap.Authenticated {
		return nil, &cli.AuthRequiredError{Endpoint: a.cfg.Endpoint}
	}
	return snap.User, nil
}
