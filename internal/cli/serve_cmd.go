package cli

import (
	"github.com/spf13/cobra"

	"surveytracker/internal/app"
	"surveytracker/internal/infrastructure"
)

func newServeCmd(a *App) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.Config.Server.Port = port
			}

			providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(a.Config.Telemetry), a.Logger)
			if err != nil {
				return err
			}
			if err := a.Paths.EnsureDirectories(); err != nil {
				return err
			}

			server, err := app.New(a.Config, a.Paths, a.Logger, providers)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", a.Config.Server.Port, "listen port")
	return cmd
}
