package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"surveyhub-backend/shared/config"
	"surveyhub-backend/shared/usage"
)

func newPlansCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Validate and print the plan catalog",
		Long:  "plans loads the catalog from --file (or PLANS_FILE, or the built-in plans) and prints each tier's limits.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				if cfg, err := config.Parse(); err == nil {
					file = cfg.PlansFile
				}
			}
			catalog, err := usage.LoadCatalog(file)
			if err != nil {
				return err
			}
			if asJSON {
				return printPlansJSON(cmd.OutOrStdout(), catalog)
			}
			return printPlans(cmd.OutOrStdout(), catalog)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "plans YAML file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printPlans(out io.Writer, catalog *usage.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIER\tNAME\tPRICE\tSURVEYS\tORGANIZATIONS\tMEMBERS\tSTRIPE PRICES")
	for _, p := range catalog.Plans() {
		prices := strings.Join(p.StripePriceIDs, ",")
		if prices == "" {
			prices = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t$%d.%02d\t%s\t%s\t%s\t%s\n",
			p.Tier, p.Name,
			p.MonthlyPriceCents/100, p.MonthlyPriceCents%100,
			p.Limits.Surveys, p.Limits.Organizations, p.Limits.Members,
			prices)
	}
	return w.Flush()
}

type planJSON struct {
	usage.Plan
	StripePriceIDs []string `json:"stripePriceIds"`
}

func printPlansJSON(out io.Writer, catalog *usage.Catalog) error {
	plans := make([]planJSON, 0, len(catalog.Plans()))
	for _, p := range catalog.Plans() {
		plans = append(plans, planJSON{Plan: p, StripePriceIDs: p.StripePriceIDs})
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(plans)
}
