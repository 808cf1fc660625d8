package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"surveytracker/internal/app"
	"surveytracker/internal/config"
)

func newVersionCmd(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "surveytracker %s", config.AppVersion)
			if app.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (built %s)", app.BuildTime)
			}
			fmt.Fprintf(cmd.OutOrStdout(), " %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
