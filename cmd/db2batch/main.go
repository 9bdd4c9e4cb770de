package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jayps/db2batch/internal/app/batch"
	"github.com/jayps/db2batch/internal/app/keyring"
	"github.com/jayps/db2batch/internal/config"
	"github.com/jayps/db2batch/internal/db2"
	"github.com/jayps/db2batch/internal/logging"
	"github.com/jayps/db2batch/internal/ui"
)

var version = "dev" // overridden by -ldflags "-X main.version=..."

type app struct {
	cfgPath   string
	logLevel  string
	logFormat string
	timeout   time.Duration
	yes       bool

	cfg config.Config
	log logging.Logger
}

func main() {
	a := &app{}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "db2batch",
		Short:         "Batch export, import and maintenance through the DB2 command line processor",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsConfig(cmd) {
				return nil
			}
			return a.init()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", filepath.Join(".", config.DefaultFile), "config file")
	pf.StringVar(&a.logLevel, "log-level", "", "trace, debug, info, warn, error or off (default $"+logging.EnvLogLevel+" or info)")
	pf.StringVar(&a.logFormat, "log-format", "console", "console or json")
	pf.DurationVar(&a.timeout, "timeout", 0, "abort a run after this long (default settings.timeout)")
	pf.BoolVarP(&a.yes, "yes", "y", false, "do not ask before destructive operations")

	root.AddCommand(
		newDataCmd(a, batch.Export, "Export query results to IXF files"),
		newDataCmd(a, batch.Import, "Import IXF files written by an export of the same run"),
		newTablesCmd(a, batch.RunStats, "Collect statistics on tables"),
		newTablesCmd(a, batch.Reorg, "Reorganize tables"),
		newTablesCmd(a, batch.Truncate, "Truncate tables"),
		newGrantCmd(a),
		newRawCmd(a),
		newRunCmd(a),
		newLoginCmd(a),
	)
	return root
}

// needsConfig is false for help and shell completion, which must work
// before a config file exists.
func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

var errConfigCreated = errors.New("edit it and re-run")

func (a *app) init() error {
	log, err := logging.New(logging.Options{Format: a.logFormat, Level: a.logLevel})
	if err != nil {
		return err
	}
	a.log = log

	created, err := config.EnsureExists(a.cfgPath)
	if err != nil {
		return err
	}
	if created {
		return fmt.Errorf("created default config at %s: %w", a.cfgPath, errConfigCreated)
	}
	if a.cfg, err = config.Load(a.cfgPath); err != nil {
		return err
	}
	if a.timeout <= 0 {
		a.timeout = a.cfg.Settings.Timeout
	}
	return nil
}

func (a *app) client() *db2.Client {
	s := a.cfg.Settings
	l := batch.NewLauncher(runtime.GOOS, batch.LauncherConfig{Tool: s.Tool, Shell: s.Launcher}, a.log)
	r := batch.NewRunner(l, a.log)
	r.CommitCount = s.CommitCount
	r.Timing = batch.Timing{
		PollInterval:  s.PollInterval,
		CheckInterval: s.CheckInterval,
		MaxChecks:     s.MaxChecks,
	}
	return db2.New(r, a.log)
}

// connection resolves a configured connection, prompting for the name when
// none was given and for the password when neither config nor keyring has one.
func (a *app) connection(name string) (*config.Connection, db2.Conn, error) {
	if name == "" {
		picked, err := ui.Select("Select connection:", a.cfg.ConnectionNames())
		if err != nil {
			return nil, db2.Conn{}, err
		}
		name = picked
	}
	c, err := a.cfg.Connection(name)
	if err != nil {
		return nil, db2.Conn{}, err
	}

	password := c.Password
	if password == "" {
		password, err = a.storedPassword(c.Name)
		if err != nil {
			return nil, db2.Conn{}, err
		}
	}
	return c, db2.Conn{
		Database: c.Database,
		Alias:    c.Alias,
		User:     c.User,
		Password: password,
		Profile:  c.Profile,
	}, nil
}

func (a *app) storedPassword(conn string) (string, error) {
	store, err := keyring.New(a.cfg.Settings.KeyringService)
	if err == nil {
		pw, err := store.Password(conn)
		if err == nil {
			return pw, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			a.log.Warn("keyring lookup failed", "connection", conn, "err", err)
		}
	} else {
		a.log.Warn("keyring unavailable", "err", err)
	}
	return ui.Password(fmt.Sprintf("Password for %s:", conn))
}

// guard refuses destructive operations on protected connections and asks
// before truncating anything.
func (a *app) guard(op batch.OpType, c *config.Connection, tables int) error {
	if op != batch.Truncate && op != batch.Import {
		return nil
	}
	if c.Protected {
		return fmt.Errorf("connection %q is protected; refusing to %s", c.Name, op)
	}
	if op != batch.Truncate || a.yes {
		return nil
	}
	ok, err := ui.ConfirmDanger(fmt.Sprintf("%d table(s) on %q will be EMPTIED. Continue?", tables, c.Name))
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("aborted")
	}
	return nil
}

func (a *app) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.timeout)
}
