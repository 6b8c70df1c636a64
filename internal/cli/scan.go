package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/ui/console"
	"github.com/tejashwikalptaru/audiotracker/internal/domain"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		add    bool
		search string
	)

	cmd := &cobra.Command{
		Use:   "scan [dir...]",
		Short: "Scan music directories and list the tracks found",
		Long: `Scan the configured music directories, the saved ones and any given on the
command line, then list the tracks found.

Examples:
  audiotracker scan
  audiotracker scan ~/Downloads/music --add
  audiotracker scan --search bowie`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.headless()

			application, err := opts.newApplication(args)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			if add && len(args) > 0 {
				saved := application.Preferences().ScanPaths()
				if err := application.Preferences().SetScanPaths(append(saved, args...)); err != nil {
					return fmt.Errorf("failed to save scan paths: %w", err)
				}
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if _, err := application.Library().Refresh(ctx); err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			tracks := application.Library().Search(search)
			renderTracks(cmd, tracks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&add, "add", false, "remember the given directories for later runs")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only list tracks whose title or artist matches")
	return cmd
}

func renderTracks(cmd *cobra.Command, tracks []domain.TrackRef) {
	if len(tracks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tracks found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Length", "Path"})
	for i, track := range tracks {
		length := "-"
		if track.DurationMs > 0 {
			length = console.FormatTime(track.DurationMs)
		}
		t.AppendRow(table.Row{i + 1, track.Title, track.Artist, length, track.Source})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tracks", len(tracks))})
	t.Render()
}

// signalContext is cancelled on interrupt or termination.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
