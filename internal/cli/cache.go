package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modgraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the validation report cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand. The Redis cache is
// cleared as well when an address is configured.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var flags cacheFlags

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached validation reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			if n, err := clearFileCache(cmd.Context(), dir); err != nil {
				return err
			} else if n == 0 {
				printInfo(out, "File cache is empty")
			} else {
				printSuccess(out, "Cleared %d cached reports", n)
				printDetail(out, "Directory: %s", dir)
			}

			if addr := flags.redis(); addr != "" {
				if err := clearRedisCache(cmd.Context(), addr); err != nil {
					return err
				}
				printSuccess(out, "Cleared Redis cache")
				printDetail(out, "Address: %s", addr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.redisAddr, "redis-addr", "", "also clear this Redis report cache (env "+redisAddrEnv+")")
	return cmd
}

// clearFileCache empties the file cache in dir and returns how many entries
// it held. A missing directory is an empty cache.
func clearFileCache(ctx context.Context, dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}

	count := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})

	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return 0, fmt.Errorf("open cache: %w", err)
	}
	defer fc.Close()
	if err := fc.(cache.Clearer).Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return count, nil
}

func clearRedisCache(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rc.Close()
	if err := rc.Clear(ctx); err != nil {
		return fmt.Errorf("clear redis cache: %w", err)
	}
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
