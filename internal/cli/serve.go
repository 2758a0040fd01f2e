package cli

import (
	"github.com/spf13/cobra"

	"github.com/ganbari-quest/ganbari/internal/daemon"
)

func newServeCmd() *cobra.Command {
	var (
		host   string
		port   int
		noJobs bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server and job scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := daemon.LoadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.API.Host = host
			}
			if port > 0 {
				cfg.API.Port = port
			}
			if noJobs {
				cfg.Jobs.Enabled = false
			}

			d, err := daemon.NewWithConfig(cfg)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Host to listen on (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "Disable the decay and weekly evaluation scheduler")
	return cmd
}
