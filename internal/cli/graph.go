package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/render/nodelink"
)

// Graph output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// graphCommand creates the "graph" command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph <id[@version]>",
		Short: "Draw a module's resolved dependencies",
		Long: `Resolve a module and draw it with its selected dependencies as a node-link
diagram. Installed modules are highlighted; unresolved dependencies are drawn
dashed.`,
		Example: `  modcat graph Acme.Orders -o orders.svg
  modcat graph Acme.Orders --format dot | dot -Tpng > orders.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatDOT && format != formatSVG {
				return errors.New(errors.ErrCodeUnsupported, "unsupported format %q (want dot or svg)", format)
			}
			id, version, err := parseRef(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := c.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := c.loadCatalog(ctx, e.catalog); err != nil {
				return err
			}
			root, err := pickVersion(ctx, e.catalog, id, version)
			if err != nil {
				return err
			}
			res, err := e.catalog.DependentModules(ctx, root)
			if err != nil {
				return err
			}

			data := []byte(nodelink.ToDOT(root, res, nodelink.Options{Detailed: detailed}))
			if format == formatSVG {
				if data, err = nodelink.RenderSVG(ctx, string(data)); err != nil {
					return err
				}
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered %s", StyleHighlight.Render(root.String()))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatSVG, "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include versions and ranges in labels")
	return cmd
}
