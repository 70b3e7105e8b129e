package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
)

// assignments are repeated --set key=value flags, applied in order.
type assignments []string

func (as assignments) apply(s *editor.Session) error {
	for _, kv := range as {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "--set wants key=value, got %q", kv)
		}
		if err := s.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// session opens an editor session on connStr with the --set values and,
// when asked, a password read from the terminal.
func (a *app) session(cmd *cobra.Command, connStr string, sets assignments, askPassword bool, store dsnstore.Store) (*editor.Session, error) {
	s, err := editor.New(editor.Options{
		Mode:             profile.ModeEdit,
		ConnectionString: connStr,
		Test:             a.tester().Callback(),
		Save:             dsnstore.SaveCallback(store),
		Logger:           a.log,
	})
	if err != nil {
		return nil, err
	}
	if err := sets.apply(s); err != nil {
		return nil, err
	}
	if askPassword {
		pwd, err := promptSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read password", err)
		}
		if err := s.Set(profile.KeyPassword, pwd); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *app) saveCmd() *cobra.Command {
	var (
		src         source
		sets        []string
		askPassword bool
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "save [connection-string]",
		Short: "Validate and store a DSN without the form",
		Long: `Validate a connection string and store it under the name carried by
its dsn keyword. An existing DSN is replaced only after confirmation.

Examples:
  dsnedit save "dsn=local;hostname=localhost"
  dsnedit save --dsn local --set port=9201 --yes
  dsnedit save --template cloud --set dsn=prod --set uid=elastic --ask-password`,
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

			d := newLineDialog(cmd.InOrStdin(), cmd.ErrOrStderr(), yes)
			switch out := s.Submit(ctx, d); out {
			case editor.OutcomeSaved:
				fmt.Fprintf(cmd.OutOrStdout(), "Saved DSN %q\n", s.Profile().Name)
				return nil
			case editor.OutcomeDeclined:
				return errs.New(errs.ErrKindAlreadyExists, "DSN exists; not overwritten")
			case editor.OutcomeDisabled:
				return errs.New(errs.ErrKindInvalidInput, "nothing to save: the DSN needs a name and a server or Cloud ID")
			default:
				return errs.New(errs.ErrKindInvalidInput, strings.Join(s.Messages(), "; "))
			}
		},
	}

	src.bind(cmd)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a keyword (key=value), repeatable")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "prompt for the password")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "overwrite an existing DSN without asking")
	return cmd
}
