package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tejashwikalptaru/audiotracker/internal/app"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo().FullString())
		},
	}
}
