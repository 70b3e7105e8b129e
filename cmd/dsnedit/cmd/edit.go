package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/editor"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/profile"
	"github.com/koustreak/dsneditor/internal/tui"
)

// source names where a command takes its starting connection string from.
type source struct {
	dsn      string
	template string
}

func (s *source) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.dsn, "dsn", "", "start from the stored DSN with this name")
	cmd.Flags().StringVar(&s.template, "template", "", "start from this connection template")
}

// resolve returns the connection string named by args, --dsn or --template.
func (s *source) resolve(ctx context.Context, a *app, store dsnstore.Store, args []string) (string, error) {
	set := 0
	for _, v := range []bool{len(args) > 0, s.dsn != "", s.template != ""} {
		if v {
			set++
		}
	}
	if set > 1 {
		return "", errs.New(errs.ErrKindInvalidInput, "give a connection string, --dsn or --template, not several")
	}

	switch {
	case len(args) > 0:
		return args[0], nil
	case s.dsn != "":
		e, err := store.Get(ctx, s.dsn)
		if err != nil {
			return "", err
		}
		return e.ConnectionString, nil
	case s.template != "":
		templates, closeFn, err := a.openTemplates(ctx)
		if err != nil {
			return "", err
		}
		defer closeFn()
		return templates.Load(ctx, s.template)
	}
	return "", nil
}

func parseMode(s string) (profile.Mode, error) {
	switch strings.ToLower(s) {
	case "", "edit":
		return profile.ModeEdit, nil
	case "connect":
		return profile.ModeConnect, nil
	}
	return 0, errs.Newf(errs.ErrKindInvalidInput, "unknown mode %q (edit, connect)", s)
}

func (a *app) editCmd() *cobra.Command {
	var (
		src       source
		mode      string
		altScreen bool
	)

	cmd := &cobra.Command{
		Use:   "edit [connection-string]",
		Short: "Edit a connection string in the terminal form",
		Long: `Open the DSN editor form on a connection string.

In edit mode the form saves the DSN into the configured store. In connect
mode the name is locked and the accepted connection string is printed on
stdout instead, for the driver to connect with.

Examples:
  dsnedit edit
  dsnedit edit --dsn prod
  dsnedit edit --template cloud --mode connect`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := parseMode(mode)
			if err != nil {
				return err
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			connStr, err := src.resolve(ctx, a, store, args)
			if err != nil {
				return err
			}

			fe := &tui.Frontend{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr(), AltScreen: altScreen}
			result, err := editor.Edit(ctx, editor.Options{
				Mode:             m,
				ConnectionString: connStr,
				Test:             a.tester().Callback(),
				Save:             a.saveCallback(m, store),
				Logger:           a.log,
			}, fe)
			if err != nil {
				return err
			}
			if result == "" {
				return errs.New(errs.ErrKindUnknown, "cancelled")
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	src.bind(cmd)
	cmd.Flags().StringVar(&mode, "mode", "edit", "editor mode (edit, connect)")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", false, "draw the form on the alternate screen")
	return cmd
}

// saveCallback stores DSNs in edit mode. A connect request has nothing to
// store, so the string is accepted as it is.
func (a *app) saveCallback(m profile.Mode, store dsnstore.Store) editor.Callback {
	if m == profile.ModeConnect {
		return func(context.Context, string, editor.Flags) (int, string) {
			return editor.StatusOK, ""
		}
	}
	return dsnstore.SaveCallback(store)
}
