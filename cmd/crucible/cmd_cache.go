package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spboyer/crucible/internal/cache"
	"github.com/spboyer/crucible/internal/projectconfig"
	"github.com/spf13/cobra"
)

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the validation result cache",
		Long: `Manage the external validation result cache.

The cache stores validation results keyed by query text and type, so repeated
sessions on similar topics do not query the external sources again.`,
	}

	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", filepath.Join(projectconfig.DefaultOutputDir, "cache"), "Cache directory")

	cmd.AddCommand(newCacheClearCommand())
	cmd.AddCommand(newCacheStatsCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the validation result cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(cacheDir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			c := cache.New(absDir)
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
			return nil
		},
	}
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many validation results are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(cacheDir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			stats, err := cache.New(absDir).DiskStats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:   %s\n", absDir)
			fmt.Fprintf(out, "Entries: %d\n", stats.Entries)
			types := make([]string, 0, len(stats.ByType))
			for t := range stats.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(out, "  %s %d\n", pad(t, 16), stats.ByType[t])
			}
			return nil
		},
	}
}
