package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/audiotracker/internal/adapter/ui/console"
)

const playHelp = `commands: p play/pause, n next, b previous, x stop, s shuffle, r repeat,
          f SEC seek (f +10 / f -10 relative), /QUERY play match, q quit`

func newPlayCmd(opts *rootOptions) *cobra.Command {
	var shuffle, repeat bool

	cmd := &cobra.Command{
		Use:   "play [query]",
		Short: "Play the library interactively",
		Long: `Scan the library and start playing the first track matching query, or the
first track when no query is given. Commands are read from standard input
one per line.

` + playHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			if shuffle {
				opts.settings.Player.Shuffle = true
			}
			if repeat {
				opts.settings.Player.Repeat = true
			}

			application, err := opts.newApplication(nil)
			if err != nil {
				return err
			}
			defer func() { _ = application.Shutdown() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := application.Start(ctx); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}

			out := cmd.OutOrStdout()
			view := console.NewView(out)
			presenter := console.NewPresenter(
				application.Logger(),
				application.Player(),
				application.Library(),
				application.EventBus(),
				view,
			)
			defer presenter.Shutdown()

			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			if len(application.Library().Tracks()) == 0 {
				view.ShowNotification("Library", "no tracks found, use scan --add DIR")
			} else if err := presenter.OnSearch(query); err != nil {
				view.ShowError("Play", err.Error())
			}

			fmt.Fprintln(out, playHelp)
			return runCommandLoop(ctx, cmd.InOrStdin(), presenter, view)
		},
	}

	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "enable shuffle")
	cmd.Flags().BoolVar(&repeat, "repeat", false, "enable repeat")
	return cmd
}

// runCommandLoop feeds input lines to the presenter until quit, end of input
// or cancellation.
func runCommandLoop(ctx context.Context, in io.Reader, presenter *console.Presenter, view *console.View) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := presenter.HandleCommand(line)
			if errors.Is(err, console.ErrQuit) {
				return nil
			}
			if err != nil {
				view.ShowError("Command", err.Error())
			}
		}
	}
}
