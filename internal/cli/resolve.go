package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modcat/pkg/catalog"
	"github.com/matzehuels/modcat/pkg/errors"
	"github.com/matzehuels/modcat/pkg/module"
	"github.com/matzehuels/modcat/pkg/resolver"
)

// resolveOutput is the JSON shape of a resolution.
type resolveOutput struct {
	Root       string      `json:"root"`
	Modules    []listEntry `json:"modules"`
	Unresolved []string    `json:"unresolved,omitempty"`
}

// resolveCommand creates the "resolve" command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		asJSON bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [id[@version]]",
		Short: "Show the modules a module needs, in activation order",
		Long: `Resolve the transitive dependencies of a module against the catalog and print
the selected version of each, dependencies first.

Without a version, the installed version of the module is used, or the newest
one. Without an argument on a terminal, an interactive picker is shown.`,
		Example: `  modcat resolve Acme.Orders
  modcat resolve Acme.Orders@2.1.0 --json
  modcat resolve --policy intersect Acme.Orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := c.loadCatalog(ctx, e.catalog); err != nil {
				return err
			}

			root, err := c.chooseRoot(ctx, e.catalog, args)
			if err != nil || root == nil {
				return err
			}

			prog := newProgress(c.Logger)
			res, err := e.catalog.DependentModules(ctx, root)
			if err != nil {
				return err
			}
			c.Logger.Debug("resolution finished", "root", root.String(), "selected", len(res.Modules))

			if asJSON {
				if err := writeResolveJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				printResolution(root, res)
				prog.done(fmt.Sprintf("Resolved %d modules", len(res.Modules)))
			}

			if strict {
				return res.Err()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a dependency cannot be resolved")
	return cmd
}

// chooseRoot returns the module named by args, or asks the user to pick one.
// A nil record with a nil error means the user cancelled.
func (c *CLI) chooseRoot(ctx context.Context, cat *catalog.Catalog, args []string) (*module.Record, error) {
	if len(args) == 1 {
		id, version, err := parseRef(args[0])
		if err != nil {
			return nil, err
		}
		return pickVersion(ctx, cat, id, version)
	}
	if !interactive() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "module id required")
	}

	records, err := cat.Modules(ctx)
	if err != nil {
		return nil, err
	}
	final, err := tea.NewProgram(NewModulePickerModel(records), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, err
	}
	picked, ok := final.(ModulePickerModel)
	if !ok || picked.Selected == nil {
		printDetail("No selection made")
		return nil, nil
	}
	return picked.Selected, nil
}

func printResolution(root *module.Record, res *resolver.Result) {
	fmt.Println(StyleTitle.Render(root.String()))
	ordered := res.Ordered()
	if len(ordered) == 0 {
		printDetail("no dependencies")
	}
	for _, r := range ordered {
		fmt.Println(moduleLine(r.ID, r.Version.String(), r.Installed))
	}
	if !res.Complete() {
		printNewline()
		for _, u := range res.Unresolved {
			printWarning("%s", u.Error())
		}
	}
}

func writeResolveJSON(w io.Writer, res *resolver.Result) error {
	out := resolveOutput{Root: res.Root.String(), Modules: []listEntry{}}
	for _, r := range res.Ordered() {
		out.Modules = append(out.Modules, newListEntry(r))
	}
	for _, u := range res.Unresolved {
		out.Unresolved = append(out.Unresolved, u.Error())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
