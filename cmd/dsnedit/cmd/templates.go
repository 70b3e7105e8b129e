package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse connection templates",
		Long: `Connection templates are .dsn files holding a starting connection
string, kept in a MinIO bucket or a local directory (see templates in the
config). Start a DSN from one with --template.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			templates, closeFn, err := a.openTemplates(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := templates.List(ctx)
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), list, func(tw *tabwriter.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(tw, "No templates found.")
					return
				}
				row(tw, "NAME", "SIZE", "MODIFIED")
				for _, t := range list {
					row(tw, t.Name, humanize.IBytes(uint64(t.Size)), humanize.Time(t.LastModified))
				}
			})
		},
	})
	return cmd
}
