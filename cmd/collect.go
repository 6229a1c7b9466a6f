package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/recipe-harvester/internal/pipeline"
)

func newCollectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect <listing-url>",
		Short: "Harvest every recipe card on a listing page and append them in one batch",
		Long: `collect fetches a listing page, visits the recipe behind each card and appends
all complete records to the store in a single write. Card data fills fields the
recipe page does not provide. Nothing is written when no card yields a record, and
a failure to fetch the listing itself aborts the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			return withDriver(cmd.Context(), rt, func(ctx context.Context, d *pipeline.Driver) error {
				sum, err := d.RunListing(ctx, args[0])
				printSummary(cmd.OutOrStdout(), sum)
				if err != nil {
					return fmt.Errorf("collect: %w", err)
				}
				return nil
			})
		},
	}
}
