package cmd

import (
	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/api"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the DSN catalogue over HTTP",
		Long: `Serve the DSN catalogue and the connection test as a JSON API.

Endpoints:
  GET    /healthz
  GET    /api/v1/dsns
  GET    /api/v1/dsns/{name}
  PUT    /api/v1/dsns/{name}
  PATCH  /api/v1/dsns/{name}
  DELETE /api/v1/dsns/{name}
  POST   /api/v1/test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			return api.New(&cfg, store, a.tester(), a.log).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
