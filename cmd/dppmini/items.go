package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"dppmini/internal/filter"
	"dppmini/internal/models"

	"github.com/spf13/cobra"
)

func printRecords(w io.Writer, records []models.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(models.Columns, "\t")))
	for _, r := range records {
		fmt.Fprintln(tw, strings.Join(r.Fields(), "\t"))
	}
	return tw.Flush()
}

func printWarnings(w io.Writer, warns filter.Warnings) {
	keys := make([]string, 0, len(warns))
	for k := range warns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "warning: expiry %s: %s\n", k, warns[k])
	}
}

func bindCriteria(cmd *cobra.Command, c *filter.Criteria) {
	cmd.Flags().StringVar(&c.GtinContains, "gtin", "", "GTIN contains")
	cmd.Flags().StringVar(&c.BatchContains, "batch", "", "batch contains (case-insensitive)")
	cmd.Flags().StringVar(&c.ExpiryFrom, "from", "", "expiry on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&c.ExpiryTo, "to", "", "expiry on or before YYYY-MM-DD")
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add GTIN BATCH EXPIRY",
		Short: "Validate and add a single record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			rec, err := kit.Records.Add(models.ItemInput{Gtin: args[0], Batch: args[1], Expiry: args[2]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", strings.Join(rec.Fields(), " | "))
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var criteria filter.Criteria
	var recent int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			if cmd.Flags().Changed("recent") {
				if recent <= 0 {
					recent = kit.Conf.View.RecentCount
				}
				return printRecords(cmd.OutOrStdout(), kit.Records.Recent(recent))
			}

			records, warns := kit.Records.View(criteria)
			printWarnings(cmd.ErrOrStderr(), warns)
			if err := printRecords(cmd.OutOrStdout(), records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d items\n", len(records))
			return nil
		},
	}
	bindCriteria(cmd, &criteria)
	cmd.Flags().IntVar(&recent, "recent", 0, "show only the N most recent records (0 uses view.recentCount)")
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var gtin, batch, expiry string

	cmd := &cobra.Command{
		Use:   "edit GTIN BATCH EXPIRY CREATED_AT",
		Short: "Change the GTIN, batch or expiry of one record",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := models.Record{Gtin: args[0], Batch: args[1], Expiry: args[2], CreatedAt: args[3]}
			in := models.ItemInput{Gtin: target.Gtin, Batch: target.Batch, Expiry: target.Expiry}
			if cmd.Flags().Changed("gtin") {
				in.Gtin = gtin
			}
			if cmd.Flags().Changed("batch") {
				in.Batch = batch
			}
			if cmd.Flags().Changed("expiry") {
				in.Expiry = expiry
			}

			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			res, err := kit.Records.Edit(target, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "updated %s\n", strings.Join(res.Record.Fields(), " | "))
			for _, old := range res.Superseded {
				fmt.Fprintf(out, "replaced existing %s\n", strings.Join(old.Fields(), " | "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gtin, "gtin", "", "new GTIN")
	cmd.Flags().StringVar(&batch, "batch", "", "new batch")
	cmd.Flags().StringVar(&expiry, "expiry", "", "new expiry YYYY-MM-DD")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete GTIN BATCH EXPIRY CREATED_AT",
		Short: "Delete the record matching all four fields",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := c.toolkit()
			if err != nil {
				return err
			}
			defer kit.Logger.Close()

			deleted, err := kit.Records.Delete(models.Record{Gtin: args[0], Batch: args[1], Expiry: args[2], CreatedAt: args[3]})
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching record")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}
