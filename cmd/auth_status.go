package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"goose/internal/cli"
	"goose/internal/session"
	"goose/internal/store"
	"goose/pkg/auth"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session status",
	Long: `Validate the stored session with the backend and show the result.

A stored token that the backend does not confirm is removed, so a
session that was revoked elsewhere shows up as signed out here.

Use -o json for a stable machine-readable form.`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

var statusOutput string

func init() {
	authStatusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "output format: table or json")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	if statusOutput != "table" && statusOutput != "json" {
		return fmt.Errorf("unknown output format %q (want table or json)", statusOutput)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, hadToken := a.store.Get(store.TokenKey)
	snap := a.session.Start(cmd.Context())
	status := buildStatus(a, snap, hadToken)

	if statusOutput == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	a.printf("goose session\n")
	a.printf("  Endpoint:  %s\n", status.Endpoint)
	a.printf("  Store:     %s\n", status.Store)
	a.printf("  Status:    %s\n", cli.StatusText(snap.State))
	if status.User != nil {
		a.printf("  User:      %s (%s)\n", status.User.Email, status.User.Name)
	} else if status.Cleared {
		a.printf("  Note:      the stored session could not be validated and was cleared\n")
	}
	return nil
}

func buildStatus(a *app, snap session.Snapshot, hadToken bool) auth.StatusResponse {
	status := auth.StatusResponse{
		Endpoint:      a.cfg.Endpoint,
		Store:         storeDescription(a),
		State:         snap.State.String(),
		Authenticated: snap.Authenticated,
	}
	if snap.User != nil {
		status.User = &auth.UserStatus{
			ID:         snap.User.ID,
			Email:      snap.User.Email,
			Name:       snap.User.DisplayName,
			IdentityID: snap.User.ExternalIdentityID,
		}
		return status
	}
	if hadToken {
		_, stillThere := a.store.Get(store.TokenKey)
		status.Cleared = !stillThere
	}
	return status
}

func storeDescription(a *app) string {
	switch s := a.store.(type) {
	case *store.File:
		return "file " + s.Path()
	case *store.Redis:
		return "redis " + a.cfg.Store.Redis.Addr
	default:
		return string(a.cfg.Store.Backend)
	}
}
