package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/modcat/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
// The config file is read before any subcommand runs; global flags override
// its values.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "modcat keeps a catalog of feature modules and resolves their dependencies",
		Long: `modcat merges a remote manifest feed with locally installed modules into a
single catalog, and answers which module versions must be activated with a
given module.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/modcat/config.toml)")
	flags.StringVar(&c.feedURL, "feed", "", "manifest feed URL or file path")
	flags.StringVar(&c.modulesDir, "modules-dir", "", "directory of installed modules")
	flags.StringVar(&c.policy, "policy", "", "range policy: first or intersect")
	flags.BoolVar(&c.noCache, "no-cache", false, "do not read or write the feed cache")
	flags.BoolVar(&c.refresh, "refresh", false, "fetch the feed even if a cached copy is fresh")

	root.AddCommand(c.listCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.feedCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
