package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/recipe-harvester/internal/imageurl"
	"github.com/JakeFAU/recipe-harvester/internal/maintenance"
)

func newReimageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reimage",
		Short: "Refresh proxied image URLs in the store with WebP output parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			st, err := openStore(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			res, err := maintenance.Apply(st, maintenance.Reimage(imageurl.New(rt.cfg.Image)), rt.logger.Named("reimage"))
			if err != nil {
				return fmt.Errorf("reimage: %w", err)
			}
			printRewrite(cmd.OutOrStdout(), "updated", res)
			return nil
		},
	}
}

func newTagCmd() *cobra.Command {
	var keyword, label string
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Set the dietary label of recipes whose description mentions a keyword",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			st, err := openStore(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			res, err := maintenance.Apply(st, maintenance.Tag(keyword, label), rt.logger.Named("tag"))
			if err != nil {
				return fmt.Errorf("tag: %w", err)
			}
			printRewrite(cmd.OutOrStdout(), "tagged "+label, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyword, "keyword", maintenance.DefaultTagKeyword, "case-insensitive text to look for in descriptions")
	cmd.Flags().StringVar(&label, "label", maintenance.DefaultTagLabel, "dietary label to set on matching rows")
	return cmd
}

func printRewrite(w io.Writer, verb string, res maintenance.Result) {
	fmt.Fprintf(w, "%s %d of %d rows\n", verb, res.Changed, res.Rows)
	fmt.Fprintf(w, "backup: %s\n", res.BackupPath)
}
