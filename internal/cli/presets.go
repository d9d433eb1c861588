package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nicholaspatten/svgit/pkg/settings"
)

// presetsCommand creates the presets command.
func (c *CLI) presetsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the tracing presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := settings.Names()
			if asJSON {
				out := make(map[string]settings.Settings, len(names))
				for _, n := range names {
					s, ok := settings.Lookup(n)
					if !ok {
						s = settings.Default()
					}
					out[n] = s
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			rows := make([][]string, len(names))
			for i, n := range names {
				rows[i] = presetRow(n)
			}
			t := styledTable(rows, presetHeaders...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return headerStyle
					}
					if col == 0 {
						return StyleHighlight
					}
					return lipgloss.NewStyle().Foreground(colorWhite)
				})
			fmt.Println(t.Render())
			printNextStep("Use one", "svgit convert image.png --preset logo")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print presets as JSON")
	return cmd
}
