package cli

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modcat/pkg/catalog"
	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/feed"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/observability"
	"github.com/matzehuels/modcat/pkg/observability/prom"
	"github.com/matzehuels/modcat/pkg/source"
	"github.com/matzehuels/modcat/pkg/source/local"
)

// feedCommand creates the "feed" command group.
func (c *CLI) feedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Publish module manifests as a feed",
	}
	cmd.AddCommand(c.feedServeCommand())
	cmd.AddCommand(c.feedExportCommand())
	return cmd
}

// feedServeCommand creates the "feed serve" subcommand.
func (c *CLI) feedServeCommand() *cobra.Command {
	var (
		addr   string
		dir    string
		mirror bool
		reload time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a directory of modules (or mirror the configured feed) over HTTP",
		Long: `Serve module manifests over HTTP in the feed format.

By default the modules directory is published; every request rescans it.
With --mirror, the configured feed is fetched through the catalog and
republished, reloading every --reload interval. A failed reload keeps
serving the last good copy.

Prometheus metrics are exposed on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.conf()
			if addr == "" {
				addr = cfg.Feed.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			hooks := prom.New(reg)
			observability.SetCatalogHooks(hooks)
			observability.SetCacheHooks(hooks)
			observability.SetHTTPHooks(hooks)
			defer observability.Reset()

			var provider feed.Provider
			if mirror {
				cat, closeMirror, err := c.openMirror(ctx)
				if err != nil {
					return err
				}
				defer closeMirror()
				if reload <= 0 {
					reload = cfg.Cache.TTL
				}
				go c.reloadLoop(ctx, cat, reload)
				provider = feed.ProviderFunc(cat.Modules)
				printInfo("Mirroring %s", StyleHighlight.Render(cfg.FeedURL))
			} else {
				if dir == "" {
					dir = cfg.FeedDir()
				}
				if _, err := os.Stat(dir); err != nil {
					return errors.Wrap(errors.ErrCodeInvalidPath, err, "modules directory %s", dir)
				}
				provider = local.NewDir(dir, c.Logger)
				printInfo("Publishing %s", StyleHighlight.Render(dir))
			}

			srv := feed.NewServer(provider, feed.Options{
				Logger:   c.Logger,
				Gatherer: reg,
				MaxAge:   time.Minute,
			})
			printKeyValue("listen", addr)
			printKeyValue("feed", "/modules.json")
			printKeyValue("metrics", "/metrics")
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&dir, "dir", "", "modules directory to publish (default from config)")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "republish the configured feed instead of a directory")
	cmd.Flags().DurationVar(&reload, "reload", 0, "mirror reload interval (default cache ttl)")
	return cmd
}

// openMirror builds a catalog over the remote feed alone, so installed
// modules are not republished.
func (c *CLI) openMirror(ctx context.Context) (*catalog.Catalog, func(), error) {
	cfg := c.conf()
	if cfg.FeedURL == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "--mirror needs feed_url or --feed")
	}
	cc, err := newCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cat := catalog.New(source.Combine(source.Empty{}, c.newFeed(cc, scopeMirror)), catalog.Options{
		FeedLocation: cfg.FeedURL,
		Logger:       c.Logger,
	})
	if _, err := cat.Snapshot(ctx); err != nil {
		cc.Close()
		return nil, nil, err
	}
	return cat, func() { cc.Close() }, nil
}

func (c *CLI) reloadLoop(ctx context.Context, cat *catalog.Catalog, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cat.Reload(ctx); err != nil {
				c.Logger.Warn("mirror reload failed, serving previous copy", "err", err)
			}
		}
	}
}

// feedExportCommand creates the "feed export" subcommand.
func (c *CLI) feedExportCommand() *cobra.Command {
	var (
		dir    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a modules directory as a static modules.json feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = c.conf().FeedDir()
			}
			records, err := local.NewDir(dir, c.Logger).Scan(cmd.Context())
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return module.EncodeFeed(cmd.OutOrStdout(), records)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := module.EncodeFeed(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSuccess("Exported %d modules", len(records))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "modules directory (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
