package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"goose/internal/cli"
)

// keysCmd represents the keys command group
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Create, list, rename and revoke the API keys of the signed-in user.

All keys commands need a valid session (see goose auth login) and exit
with code 2 without one.

Examples:
  goose keys list
  goose keys create ci
  goose keys rename <id> deploy
  goose keys revoke <id>`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	Args:  cobra.NoArgs,
	RunE:  runKeysList,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an API key",
	Long: `Create an API key. The full key is printed once and cannot be
retrieved again. With --quiet only the key is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeysCreate,
}

var keysRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename an API key",
	Args:  cobra.ExactArgs(2),
	RunE:  runKeysRename,
}

var keysRevokeCmd = &cobra.Command{
	Use:     "revoke ID",
	Aliases: []string{"delete"},
	Short:   "Revoke an API key",
	Args:    cobra.ExactArgs(1),
	RunE:    runKeysRevoke,
}

var keysOutput string

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRenameCmd)
	keysCmd.AddCommand(keysRevokeCmd)

	keysListCmd.Flags().StringVarP(&keysOutput, "output", "o", "table", "output format: table or json")
}

// withSession runs fn with a validated session.
func withSession(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireSession(cmd); err != nil {
		return err
	}
	return cli.ClassifyError(fn(a), a.cfg.Endpoint)
}

func runKeysList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(a *app) error {
		keys, err := a.client.ListAPIKeys(cmd.Context())
		if err != nil {
			return err
		}
		if keysOutput == "json" {
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(keys)
		}
		cli.RenderAPIKeys(a.out, keys)
		return nil
	})
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(a *app) error {
		key, err := a.client.CreateAPIKey(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if a.quiet {
			fmt.Fprintln(a.out, key.Key)
			return nil
		}
		a.printf("%s\n", cli.Success("Created API key %q (%s)", key.Name, key.ID))
		a.printf("  Key: %s\n", key.Key)
		a.printf("Store this key now. It will not be shown again.\n")
		return nil
	})
}

func runKeysRename(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(a *app) error {
		key, err := a.client.RenameAPIKey(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		a.printf("%s\n", cli.Success("Renamed API key %s to %q", key.ID, key.Name))
		return nil
	})
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(a *app) error {
		if err := a.client.RevokeAPIKey(cmd.Context(), args[0]); err != nil {
			return err
		}
		a.printf("%s\n", cli.Success("Revoked API key %s", args[0]))
		return nil
	})
}
