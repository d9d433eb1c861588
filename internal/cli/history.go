package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nicholaspatten/svgit/pkg/config"
	"github.com/nicholaspatten/svgit/pkg/history"
)

var errNoHistory = errors.New("history backend is not configured; set SVGIT_MONGO_URI or [history] backend = \"mongo\"")

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		limit  int64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions recorded by the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.History.Backend != config.BackendMongo {
				return errNoHistory
			}

			ctx := cmd.Context()
			store, err := openMongo(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			if len(recs) == 0 {
				printInfo("No conversions recorded")
				return nil
			}
			fmt.Println(historyTable(recs).Render())
			return nil
		},
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "number of records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func historyTable(recs []history.Record) *table.Table {
	rows := make([][]string, len(recs))
	for i, r := range recs {
		status := r.Status
		if r.ErrorCode != "" {
			status += " (" + r.ErrorCode + ")"
		}
		cached := ""
		if r.CacheHit {
			cached = iconCached
		}
		rows[i] = []string{
			r.CreatedAt.Local().Format(time.DateTime),
			r.Filename,
			r.Settings.Preset,
			r.Engine,
			humanSize(int(r.InputBytes)) + " " + iconArrow + " " + humanSize(r.OutputBytes),
			strconv.FormatInt(r.DurationMS, 10) + "ms",
			status,
			cached,
		}
	}

	return styledTable(rows, "When", "File", "Preset", "Engine", "Size", "Took", "Status", "").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 6 && row < len(recs) && recs[row].Status != history.StatusOK:
				return StyleError
			case col == 7:
				return styleCached
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
}
