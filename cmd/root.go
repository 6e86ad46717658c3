package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"goose/internal/cli"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments, backend unreachable).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the command needs a session and there is none.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates a sign-in attempt failed.
	ExitCodeAuthFailed = 3
)

// Global flags
var (
	configDir    string
	endpointFlag string
	debugFlag    bool
	quietFlag    bool
)

// rootCmd represents the base command for the goose application.
var rootCmd = &cobra.Command{
	Use:   "goose",
	Short: "Sign in to goose and manage your API keys",
	Long: `goose manages your session with a goose backend.

It signs you in through your identity provider in the browser, keeps the
session token in a local store, validates it with the backend on every
start, and lets you manage the API keys tied to your account.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code derived from the
// error. An interrupt cancels the command's context, which abandons any
// pending browser sign-in.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "goose version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.config/goose)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "goose backend URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
