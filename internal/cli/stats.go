package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show play counts, most played first",
		Long: `Show how often each (artist, title) pair has been played.

Examples:
  audiotracker stats --limit 10
  audiotracker stats --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.headless()

			application, err := opts.newApplication(nil)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if !watch {
				records, err := application.Stats().ListAll(ctx)
				if err != nil {
					return err
				}
				renderStats(cmd, records, limit)
				return nil
			}

			for records := range application.Stats().Watch(ctx) {
				renderStats(cmd, records, limit)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of songs to show (0 shows all)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and redraw after every recorded play")
	return cmd
}

func renderStats(cmd *cobra.Command, records []domain.PlayCountRecord, limit int) {
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plays recorded yet")
		return
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Artist", "Title", "Plays", "Last played"})
	for i, r := range records {
		t.AppendRow(table.Row{
			i + 1,
			r.Artist,
			r.Title,
			text.FgGreen.Sprint(r.PlayCount),
			r.LastPlayedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

func newRecordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "record <artist> <title>",
		Short: "Count one play of a song without playing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.headless()

			application, err := opts.newApplication(nil)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			record, err := application.Stats().RecordPlay(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s - %s: %d plays\n", record.Artist, record.Title, record.PlayCount)
			return nil
		},
	}
}
