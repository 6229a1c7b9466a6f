package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/recipe-harvester/internal/pipeline"
)

func newScrapeCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape recipe pages and upsert them into the store by title",
		Long: `scrape fetches each recipe page in turn and upserts the resulting record into
the store, replacing any row with the same title. URLs may be absolute or relative
to site.base_origin. Pages that cannot be fetched or are missing a title or image
are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			urls, err := targetURLs(args, file)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return errors.New("no recipe URLs given; pass them as arguments or with --file")
			}
			return withDriver(cmd.Context(), rt, func(ctx context.Context, d *pipeline.Driver) error {
				sum, err := d.RunPages(ctx, urls)
				printSummary(cmd.OutOrStdout(), sum)
				if err != nil {
					return fmt.Errorf("scrape: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read URLs from a file, one per line (blank lines and # comments ignored)")
	return cmd
}

// targetURLs merges positional URLs with those listed in file.
func targetURLs(args []string, file string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			urls = append(urls, a)
		}
	}
	if file == "" {
		return urls, nil
	}
	// #nosec G304 -- the URL list is chosen by the operator.
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer func() { _ = f.Close() }()
	listed, err := readURLList(f)
	if err != nil {
		return nil, fmt.Errorf("read url file %s: %w", file, err)
	}
	return append(urls, listed...), nil
}

func readURLList(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

func printSummary(w io.Writer, sum pipeline.Summary) {
	fmt.Fprintf(w, "run %s: saved %d, skipped %d, failed %d\n", sum.RunID, sum.Saved, sum.Skipped, sum.Failed)
	if sum.BackupPath != "" {
		fmt.Fprintf(w, "backup: %s\n", sum.BackupPath)
	}
	if sum.ArchiveURI != "" {
		fmt.Fprintf(w, "archived: %s\n", sum.ArchiveURI)
	}
}
