package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/api"
	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/profile"
)

// redacted returns e with its secrets masked, or e itself when it does not
// decode.
func redacted(e dsnstore.Entry) dsnstore.Entry {
	p, err := profile.Decode(e.ConnectionString)
	if err != nil {
		return e
	}
	e.ConnectionString = profile.Encode(api.Redact(p))
	return e
}

func (a *app) dsnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dsn",
		Short: "Manage the stored DSN catalogue",
		Long: `Commands for the DSN catalogue configured under store: the odbc.ini
file by default, or a SQLite, PostgreSQL or MySQL database.

Examples:
  dsnedit dsn list
  dsnedit dsn get prod -o json
  dsnedit dsn delete old`,
	}
	cmd.AddCommand(a.dsnListCmd(), a.dsnGetCmd(), a.dsnDeleteCmd())
	return cmd
}

func (a *app) dsnListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored DSNs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx)
			if err != nil {
				return err
			}
			for i := range entries {
				entries[i] = redacted(entries[i])
			}

			return a.render(cmd.OutOrStdout(), entries, func(tw *tabwriter.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(tw, "No DSNs found.")
					return
				}
				row(tw, "NAME", "DRIVER", "UPDATED")
				for _, e := range entries {
					updated := "-"
					if !e.UpdatedAt.IsZero() {
						updated = e.UpdatedAt.Format("2006-01-02 15:04:05")
					}
					row(tw, e.Name, e.Driver, updated)
				}
			})
		},
	}
}

func (a *app) dsnGetCmd() *cobra.Command {
	var secrets bool
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored DSN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			e, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !secrets {
				*e = redacted(*e)
			}
			return a.render(cmd.OutOrStdout(), e, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, e.ConnectionString)
			})
		},
	}
	cmd.Flags().BoolVar(&secrets, "show-secrets", false, "print secrets in the clear")
	return cmd
}

func (a *app) dsnDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored DSN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted DSN %q\n", args[0])
			return nil
		},
	}
}
