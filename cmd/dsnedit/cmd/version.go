package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/config"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit, and build time of dsnedit.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.OutOrStdout(), config.GetBuildInfo(), func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, config.VersionString())
			})
		},
	}
}
