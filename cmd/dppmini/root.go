package main

import (
	"fmt"

	"dppmini/internal/di"
	"dppmini/internal/structures"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type cli struct {
	flags structures.CliFlags
}

// toolkit builds the record service from config and restores the data file.
func (c *cli) toolkit() (*di.Toolkit, error) {
	kit, err := di.InitToolkit(&c.flags)
	if err != nil {
		return nil, err
	}
	if err := kit.Records.Restore(); err != nil {
		kit.Logger.Close()
		return nil, err
	}
	return kit, nil
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "dppmini",
		Short:         "Keep GTIN batch and expiry records in a CSV file",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&c.flags.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	root.PersistentFlags().BoolVar(&c.flags.DebugMode, "debug", false, "mirror logs to stderr")

	root.AddCommand(
		c.addCmd(),
		c.importCmd(),
		c.listCmd(),
		c.exportCmd(),
		c.editCmd(),
		c.deleteCmd(),
		c.settingsCmd(),
		c.serveCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dppmini %s\n", version)
		},
	}
}
