// Package cmd contains the CLI commands for dsnedit.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/koustreak/dsneditor/internal/config"
	"github.com/koustreak/dsneditor/internal/dsnstore"
	"github.com/koustreak/dsneditor/internal/errs"
	"github.com/koustreak/dsneditor/internal/filestore"
	"github.com/koustreak/dsneditor/internal/filestore/minio"
	"github.com/koustreak/dsneditor/internal/logger"
	"github.com/koustreak/dsneditor/internal/probe"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	verbose    bool
	output     string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCmd builds the dsnedit command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dsnedit",
		Short: "Elasticsearch ODBC DSN editor",
		Long: `dsnedit edits, stores and tests the connection strings of the
Elasticsearch ODBC driver.

Examples:
  # Edit a connection string in the terminal form
  dsnedit edit "dsn=local;hostname=localhost;port=9200"

  # Store a DSN without the form
  dsnedit save "dsn=prod;cloudid=prod:abc=" --set uid=elastic --ask-password

  # Test a stored DSN
  dsnedit test --dsn prod

  # Serve the DSN catalogue over HTTP
  dsnedit serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("DSNEDIT_CONFIG"), "config file (YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "output format (table, json, yaml)")

	root.AddCommand(
		a.editCmd(),
		a.saveCmd(),
		a.testCmd(),
		a.showCmd(),
		a.dsnCmd(),
		a.templatesCmd(),
		a.serveCmd(),
		a.installerCmd(),
		a.versionCmd(),
	)
	return root
}

// Execute runs the command line and reports a failure on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		PrintError(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

func (a *app) init() error {
	switch a.output {
	case "table", "json", "yaml":
	default:
		return errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", a.output)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	a.log = cfg.Logging.Logger()
	logger.SetGlobal(a.log)
	return nil
}

func (a *app) openStore(ctx context.Context) (dsnstore.Store, error) {
	a.log.Debugf("opening DSN store (%s)", a.cfg.Store.Backend)
	return dsnstore.Open(ctx, &a.cfg.Store, a.log)
}

func (a *app) tester() *probe.Tester {
	return probe.NewTester(&a.cfg.Probe, a.log)
}

// openTemplates connects to the configured template source. The returned
// close function releases it.
func (a *app) openTemplates(ctx context.Context) (*filestore.Templates, func() error, error) {
	tc := a.cfg.Templates

	var store filestore.Store
	switch tc.Provider {
	case filestore.ProviderMinIO:
		d, err := minio.New(ctx, &tc)
		if err != nil {
			return nil, nil, err
		}
		store = d
	case filestore.ProviderDir:
		d, err := filestore.NewDirStore(tc.Root)
		if err != nil {
			return nil, nil, err
		}
		store = d
	default:
		return nil, nil, errs.New(errs.ErrKindInvalidInput, "no template source configured (templates.provider)")
	}
	return filestore.NewTemplates(store, tc.Bucket, tc.Prefix), store.Close, nil
}

// PrintError prints err to w, in red when w is a terminal.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, color.RedString("Error:"), errs.Message(err))
}
