package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/modcat/pkg/module"
)

// listEntry is the JSON shape of one catalog record.
type listEntry struct {
	ID           string   `json:"id"`
	Version      string   `json:"version"`
	Title        string   `json:"title,omitempty"`
	Installed    bool     `json:"installed"`
	Mode         string   `json:"mode"`
	Dependencies []string `json:"dependencies,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

func newListEntry(r *module.Record) listEntry {
	e := listEntry{
		ID:        r.ID,
		Version:   r.Version.String(),
		Title:     r.Title,
		Installed: r.Installed,
		Mode:      r.InitializationMode.String(),
		Errors:    r.Errors,
	}
	for _, d := range r.Dependencies {
		e.Dependencies = append(e.Dependencies, d.ID+" "+d.Range)
	}
	return e
}

// listCommand creates the "list" command.
func (c *CLI) listCommand() *cobra.Command {
	var (
		installedOnly bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List modules in the catalog",
		Long: `List every module version known to the catalog: the remote feed merged with
locally installed modules. An optional filter matches module ids by substring.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			snap, err := c.loadCatalog(ctx, e.catalog)
			if err != nil {
				return err
			}

			var filter string
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}
			var records []*module.Record
			for _, r := range snap.Modules() {
				if installedOnly && !r.Installed {
					continue
				}
				if filter != "" && !strings.Contains(strings.ToLower(r.ID), filter) {
					continue
				}
				records = append(records, r)
			}

			if asJSON {
				return writeListJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				printInfo("No modules found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderModuleTable(records))
			printStats(
				fmt.Sprintf("%d modules", len(records)),
				fmt.Sprintf("%d installed", snap.Stats.Installed),
				fmt.Sprintf("%d not in feed", snap.Stats.Orphans),
			)
			printNewline()
			printNextStep("Resolve a module", "modcat resolve <id>")
			return nil
		},
	}

	cmd.Flags().BoolVar(&installedOnly, "installed", false, "show installed modules only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeListJSON(w io.Writer, records []*module.Record) error {
	entries := make([]listEntry, len(records))
	for i, r := range records {
		entries[i] = newListEntry(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func renderModuleTable(records []*module.Record) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		state := r.InitializationMode.String()
		if r.Installed {
			state = iconInstalled
		}
		notes := ""
		if r.HasErrors() {
			notes = fmt.Sprintf("%d errors", len(r.Errors))
		}
		rows[i] = []string{r.ID, r.Version.String(), state, fmt.Sprint(len(r.Dependencies)), notes}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Module", "Version", "State", "Deps", "Notes").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= len(records) {
				return lipgloss.NewStyle()
			}
			switch {
			case col == 4:
				return StyleWarning
			case records[row].Installed:
				return styleInstalled
			case col == 2:
				return styleOnDemand
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
