package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/controlplane"
)

var keyOwner string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Subscription key management",
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate <subscription-id> <primary|secondary>",
	Short: "Regenerate one key of a subscription",
	Long: `Regenerates the primary or secondary key of a subscription and prints the
refreshed subscription. With --owner the subscription must belong to that account.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := controlplane.ParseKeyType(args[1])
		if err != nil {
			return err
		}

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		var owner *string
		if keyOwner != "" {
			account, err := eng.Portal.ResolveAccount(cmd.Context(), keyOwner)
			if err != nil {
				return fmt.Errorf("resolve owner %s: %w", keyOwner, err)
			}
			owner = &account.ID
		}

		sub, err := eng.Portal.RotateKey(cmd.Context(), args[0], owner, key)
		if err != nil {
			return fmt.Errorf("rotate %s key of %s: %w", key, args[0], err)
		}
		return printJSON(cmd.OutOrStdout(), sub)
	},
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions <email>",
	Short: "List the subscriptions of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		subs, err := eng.Portal.ListSubscriptions(cmd.Context(), auth.Identity{Emails: []string{args[0]}}, "")
		if err != nil {
			return fmt.Errorf("list subscriptions of %s: %w", args[0], err)
		}
		return printJSON(cmd.OutOrStdout(), subs)
	},
}

func init() {
	keysRotateCmd.Flags().StringVar(&keyOwner, "owner", "", "Email of the account that must own the subscription")
	keysCmd.AddCommand(keysRotateCmd)
	rootCmd.AddCommand(keysCmd, subscriptionsCmd)
}
