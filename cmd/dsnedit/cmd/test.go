package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
)

func (a *app) testCmd() *cobra.Command {
	var (
		src         source
		sets        []string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "test [connection-string]",
		Short: "Test that a DSN reaches Elasticsearch",
		Long: `Validate a connection string and probe the Elasticsearch endpoint it
names, with its TLS policy, proxy and credentials.

Examples:
  dsnedit test "hostname=localhost;secure=0"
  dsnedit test --dsn prod --ask-password`,
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
			s, err := a.session(cmd, connStr, sets, askPassword, store)
			if err != nil {
				return err
			}

			d := newLineDialog(cmd.InOrStdin(), cmd.OutOrStdout(), false)
			switch s.Check(ctx, d) {
			case editor.OutcomeTestOK:
				return nil
			case editor.OutcomeDisabled:
				return errs.New(errs.ErrKindInvalidInput, "nothing to test: set a server or Cloud ID")
			default:
				return errs.New(errs.ErrKindConnectionFailed, strings.Join(s.Messages(), "; "))
			}
		},
	}

	src.bind(cmd)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a keyword (key=value), repeatable")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "prompt for the password")
	return cmd
}
