package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"goose/internal/cli"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your goose session",
	Long: `Sign in, sign out and inspect the current session.

Examples:
  goose auth login                  # Sign in through the browser
  goose auth login --mode paste     # Paste an identity assertion instead
  goose auth status                 # Validate and show the stored session
  goose auth whoami                 # Show the signed-in user
  goose auth logout                 # Sign out`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	Long: `Sign out of goose.

The backend is told the session is over when it can be reached. The local
session is always cleared, even if the backend call fails.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Validate the stored session with the backend and show the user it
belongs to. Exits with code 2 when not signed in.`,
	Args: cobra.NoArgs,
	RunE: runAuthWhoami,
}

var whoamiOutput string

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authWhoamiCmd)

	authWhoamiCmd.Flags().StringVarP(&whoamiOutput, "output", "o", "table", "output format: table or json")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.session.Logout(cmd.Context())
	a.printf("%s\n", cli.Success("Signed out"))
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.requireSession(cmd)
	if err != nil {
		return err
	}

	if whoamiOutput == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(user)
	}
	cli.RenderProfile(a.out, user)
	return nil
}
