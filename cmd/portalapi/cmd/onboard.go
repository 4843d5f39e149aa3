package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/auth"
)

var (
	onboardGivenName  string
	onboardFamilyName string
	onboardOrgName    string
	onboardOrgCode    string
	onboardDepartment string
)

var onboardCmd = &cobra.Command{
	Use:   "onboard <email>",
	Short: "Provision an account and its sandbox for an email address",
	Long: `Creates the account when missing, joins it to the default groups and runs
the onboarding workflow. Re-running it for an onboarded account creates an
additional subscription.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		id := auth.Identity{
			Subject:    args[0],
			Emails:     []string{args[0]},
			GivenName:  onboardGivenName,
			FamilyName: onboardFamilyName,
		}
		if onboardOrgName != "" || onboardOrgCode != "" {
			id.Organization = &auth.Organization{
				Name:       onboardOrgName,
				FiscalCode: onboardOrgCode,
				Department: onboardDepartment,
			}
		}

		sub, err := eng.Portal.Subscribe(cmd.Context(), id, "")
		if err != nil {
			return fmt.Errorf("onboard %s: %w", args[0], err)
		}
		return printJSON(cmd.OutOrStdout(), sub)
	},
}

func init() {
	onboardCmd.Flags().StringVar(&onboardGivenName, "given-name", "", "Given name of the developer")
	onboardCmd.Flags().StringVar(&onboardFamilyName, "family-name", "", "Family name of the developer")
	onboardCmd.Flags().StringVar(&onboardOrgName, "org-name", "", "Organization name of the sandbox service")
	onboardCmd.Flags().StringVar(&onboardOrgCode, "org-fiscal-code", "", "Organization fiscal code (11 digits)")
	onboardCmd.Flags().StringVar(&onboardDepartment, "department", "", "Department name of the sandbox service")
	rootCmd.AddCommand(onboardCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
