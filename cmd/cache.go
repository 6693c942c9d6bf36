package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/navigator/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the extraction cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		c, closeFn, err := initCache(ctx)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		if closeFn != nil {
			defer closeFn() //nolint:errcheck
		}

		p, ok := c.(cache.Purger)
		if !ok {
			return eris.Errorf("cache backend %q cannot purge", cfg.Cache.Backend)
		}
		n, err := p.Purge(ctx)
		if err != nil {
			return eris.Wrap(err, "cache purge")
		}
		fmt.Fprintf(os.Stdout, "Purged %d expired entries.\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
