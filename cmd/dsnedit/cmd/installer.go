package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/release"
)

func (a *app) installerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "installer",
		Short: "Windows installer packaging",
	}

	var arch string
	plan := &cobra.Command{
		Use:   "plan <full-version> <builds-dir> <zip-file>",
		Short: "Describe the MSI package for a driver build",
		Long: `Derive the MSI package description of a driver build: product name,
versions, upgrade code, installed files, driver registration and launch
conditions. The table output is a summary; -o yaml prints the full plan.

Example:
  dsnedit installer plan 8.13.0-windows-x86_64 ./builds ./builds/esodbc-8.13.0-windows-x86_64.zip`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target release.Arch
			if arch != "" {
				parsed, err := release.ParseArch(arch)
				if err != nil {
					return err
				}
				target = parsed
			}

			p, err := release.BuildPlan(release.PlanOptions{
				FullVersion: args[0],
				BuildsDir:   args[1],
				ZipPath:     args[2],
				Arch:        target,
			})
			if err != nil {
				return err
			}
			if a.output == "yaml" {
				return p.WriteYAML(cmd.OutOrStdout())
			}
			return a.render(cmd.OutOrStdout(), p, func(tw *tabwriter.Writer) {
				row(tw, "Name", p.Name)
				row(tw, "Platform", p.Platform)
				row(tw, "Product version", p.ProductVersion)
				row(tw, "MSI version", p.MSIVersion)
				row(tw, "Upgrade code", p.UpgradeGUID)
				row(tw, "Package", p.OutFileName)
				row(tw, "Driver", p.Driver.File)
				row(tw, "Files", fmt.Sprint(len(p.Files)))
			})
		},
	}
	plan.Flags().StringVar(&arch, "arch", "", "target architecture (x64, x86); default x64")
	cmd.AddCommand(plan)
	return cmd
}
