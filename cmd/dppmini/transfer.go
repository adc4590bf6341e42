package main

import (
	"fmt"
	"os"

	"dppmini/internal/filter"
	"dppmini/internal/storage"

	"github.com/spf13/cobra"
)

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk import records from a CSV (or a .csv.zst export) with gtin,batch,expiry columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			src, err := kit.Exporter.DecodeUpload(f)
			if err != nil {
				return err
			}
			report, err := kit.Records.Import(src)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %d valid rows (added: %d).\n", report.Accepted, report.Added)
			if summary := report.DropSummary(); summary != "" {
				fmt.Fprintf(out, "Dropped rows: %s\n", summary)
			}
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var criteria filter.Criteria
	var out, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered view as csv, xlsx or zstd-compressed csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := storage.ParseExportFormat(format)
			if err != nil {
				return err
			}

			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			records, warns := kit.Records.View(criteria)
			printWarnings(cmd.ErrOrStderr(), warns)

			data, err := kit.Exporter.Export(f, records)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d items to %s\n", len(records), out)
			return nil
		},
	}
	bindCriteria(cmd, &criteria)
	cmd.Flags().StringVar(&out, "out", "", "output file")
	cmd.Flags().StringVar(&format, "format", "csv", "csv, xlsx or zst")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
