package cmd

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/api"
	"github.com/koustreak/dsneditor/internal/profile"
)

func (a *app) showCmd() *cobra.Command {
	var (
		src     source
		secrets bool
	)

	cmd := &cobra.Command{
		Use:   "show [connection-string]",
		Short: "Decode a connection string into its settings",
		Long: `Decode a connection string, a stored DSN or a template and print every
setting of the editor form. Secrets are masked unless --show-secrets is set.

Examples:
  dsnedit show "dsn=local;hostname=localhost;secure=0"
  dsnedit show --dsn prod -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			connStr, err := src.resolve(ctx, a, store, args)
			if err != nil {
				return err
			}
			p, err := profile.Decode(connStr)
			if err != nil {
				return err
			}
			if !secrets {
				p = api.Redact(p)
			}

			return a.render(cmd.OutOrStdout(), p, func(tw *tabwriter.Writer) {
				row(tw, "GROUP", "SETTING", "KEYWORD", "VALUE")
				for _, f := range profile.Schema {
					row(tw, f.Group, f.Label, f.Key, f.Get(p))
				}
			})
		},
	}

	src.bind(cmd)
	cmd.Flags().BoolVar(&secrets, "show-secrets", false, "print secrets in the clear")
	return cmd
}
