package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"onemin/internal/ledger"
	"onemin/internal/services"
	"onemin/internal/textutil"
)

type historyRow struct {
	Video     string `json:"video"`
	Status    string `json:"status"`
	Title     string `json:"title,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	VideoID   string `json:"video_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Privacy   string `json:"privacy,omitempty"`
	Error     string `json:"error,omitempty"`
	WorkDir   string `json:"work_dir,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

func newHistoryRow(entry *ledger.Entry) historyRow {
	return historyRow{
		Video:     entry.Key.Path,
		Status:    string(entry.Status),
		Title:     entry.Title,
		RequestID: entry.RequestID,
		VideoID:   entry.VideoID,
		URL:       entry.VideoURL,
		Privacy:   entry.Privacy,
		Error:     entry.ErrorMessage,
		WorkDir:   entry.WorkDir,
		UpdatedAt: entry.UpdatedAt.Local().Format(time.DateTime),
	}
}

var knownStatuses = []ledger.Status{
	ledger.StatusPending,
	ledger.StatusDryRun,
	ledger.StatusUploaded,
	ledger.StatusRejected,
	ledger.StatusUploadFailed,
	ledger.StatusError,
}

func parseStatuses(values []string) ([]ledger.Status, error) {
	var out []ledger.Status
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		found := false
		for _, known := range knownStatuses {
			if string(known) == value {
				out = append(out, known)
				found = true
				break
			}
		}
		if !found {
			return nil, services.Wrap(services.ErrValidation, "history", "filter", fmt.Sprintf("unknown status %q", value), nil)
		}
	}
	return out, nil
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFilter []string
	var jsonOutput bool
	var summary bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show processed videos and their outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFilter)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if summary {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				keys := make([]string, 0, len(stats))
				for status := range stats {
					keys = append(keys, string(status))
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, key := range keys {
					rows = append(rows, []string{key, strconv.Itoa(stats[ledger.Status(key)])})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			}

			entries, err := store.History(cmd.Context(), limit, statuses...)
			if err != nil {
				return err
			}
			rows := make([]historyRow, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, newHistoryRow(entry))
			}
			if jsonOutput {
				return writeJSON(cmd, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No processed videos yet")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				detail := row.URL
				if detail == "" && row.RequestID != "" {
					detail = "request " + row.RequestID
				}
				if row.Error != "" {
					detail = textutil.Truncate(row.Error, 60)
				}
				table = append(table, []string{
					row.UpdatedAt,
					row.Status,
					filepath.Base(row.Video),
					textutil.Truncate(row.Title, 40),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Updated", "Status", "Video", "Title", "Detail"},
				table,
				nil,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Only show these statuses (comma separated)")
	cmd.Flags().BoolVar(&summary, "summary", false, "Show counts per status instead of entries")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
