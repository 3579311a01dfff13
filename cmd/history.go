package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"browseq/internal/storage"
	"browseq/internal/tui/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recorded runs, or show one run by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(true)
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			return showRun(cmd.OutOrStdout(), store, args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		items, err := store.List(limit)
		if err != nil {
			return err
		}

		if plain, _ := cmd.Flags().GetBool("plain"); plain {
			return printHistory(cmd.OutOrStdout(), items)
		}

		p := tea.NewProgram(history.NewModel(items))
		_, err = p.Run()
		return err
	},
}

func init() {
	historyCmd.Flags().Int("limit", 50, "Maximum number of runs to show (0 for all)")
	historyCmd.Flags().Bool("plain", false, "Print a plain tab-separated listing instead of the table view")
}

func printHistory(w io.Writer, items []storage.HistoryItem) error {
	if _, err := fmt.Fprintln(w, "id\ttime\turl\tsessions\tok\tfail\tavg_s"); err != nil {
		return err
	}
	for i, row := range history.Rows(items) {
		fields := []string{items[i].ID, row[0], row[1], row[2], row[4], row[5], row[6]}
		if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func showRun(w io.Writer, store *storage.Store, id string) error {
	item, err := store.Get(id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}

	cfg, sum := item.Config, item.Summary
	fmt.Fprintf(w, "ID          : %s\n", item.ID)
	fmt.Fprintf(w, "Time        : %s\n", item.Timestamp.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Target URL  : %s\n", cfg.URL)
	fmt.Fprintf(w, "Sessions    : %d (%d workers)\n", cfg.NumRequests, cfg.Workers)
	fmt.Fprintf(w, "Headless    : %t\n", !cfg.Headed)
	fmt.Fprintf(w, "Attempted   : %d\n", sum.TotalRequests)
	fmt.Fprintf(w, "Successful  : %d\n", sum.Success)
	fmt.Fprintf(w, "Failures    : %d\n", sum.Fail)
	fmt.Fprintf(w, "Avg duration: %.2fs\n", sum.AvgDurationMs/1000)
	fmt.Fprintf(w, "P90 duration: %.2fs\n", sum.P90DurationMs/1000)
	_, err = fmt.Fprintf(w, "Elapsed     : %s\n", time.Duration(sum.ElapsedMs)*time.Millisecond)
	return err
}
