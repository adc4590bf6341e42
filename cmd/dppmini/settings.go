package main

import (
	"fmt"

	"dppmini/internal/models"

	"github.com/spf13/cobra"
)

func (c *cli) settingsCmd() *cobra.Command {
	var autoFix, enforceFuture bool

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the GTIN auto-fix and past-expiry toggles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			var patch models.SettingsPatch
			if cmd.Flags().Changed("auto-fix-gtin") {
				patch.AutoFixGTIN = &autoFix
			}
			if cmd.Flags().Changed("enforce-future-expiry") {
				patch.EnforceFutureExpiry = &enforceFuture
			}
			settings := kit.Records.PatchSettings(patch)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "auto_fix_gtin: %t\n", settings.AutoFixGTIN)
			fmt.Fprintf(out, "enforce_future_expiry: %t\n", settings.EnforceFutureExpiry)
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoFix, "auto-fix-gtin", false, "repair GTIN check digits on add and edit")
	cmd.Flags().BoolVar(&enforceFuture, "enforce-future-expiry", false, "reject expiry dates before today")
	return cmd
}
