package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modcat/internal/config"
	"github.com/matzehuels/modcat/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the feed cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop cached manifest feeds",
		Long: `Drop cached manifest feeds so the next command fetches them again.

With the file backend the whole cache directory is emptied. With the redis
backend only the entry for the configured feed is removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.conf()
			switch cfg.Cache.Backend {
			case config.BackendNone:
				printInfo("Cache is disabled")
				return nil

			case config.BackendRedis:
				if cfg.FeedURL == "" {
					printInfo("No feed configured, nothing to clear")
					return nil
				}
				rc, err := cache.NewRedisCache(cmd.Context(), cache.RedisConfig{URL: cfg.Cache.RedisURL, Addr: cfg.Cache.RedisAddr})
				if err != nil {
					return err
				}
				defer rc.Close()
				for _, scope := range []string{scopeCatalog, scopeMirror} {
					if err := rc.Delete(cmd.Context(), feedKeyer(scope).FeedKey(cfg.FeedURL)); err != nil {
						return fmt.Errorf("clear redis cache: %w", err)
					}
				}
				printSuccess("Cleared cached feed %s", cfg.FeedURL)
				return nil

			default:
				fc, err := cache.NewFileCache(cfg.Cache.Dir)
				if err != nil {
					return fmt.Errorf("open cache dir: %w", err)
				}
				if err := fc.Clear(); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				printSuccess("Cleared feed cache")
				printDetail("Directory: %s", fc.Dir())
				return nil
			}
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where feeds are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.conf()
			switch cfg.Cache.Backend {
			case config.BackendNone:
				printInfo("Cache is disabled")
			case config.BackendRedis:
				if cfg.Cache.RedisURL != "" {
					fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.RedisURL)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "redis://"+cfg.Cache.RedisAddr)
				}
			default:
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			}
			return nil
		},
	}
}
