package main

import (
	"dppmini/internal/di"

	"github.com/spf13/cobra"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := di.InitApp(&c.flags)
			if err != nil {
				return err
			}
			return app.Run()
		},
	}
}
