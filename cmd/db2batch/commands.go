package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jayps/db2batch/internal/app/batch"
	"github.com/jayps/db2batch/internal/app/keyring"
	"github.com/jayps/db2batch/internal/db2"
	"github.com/jayps/db2batch/internal/ui"
)

type targetFlags struct {
	conn     string
	run      string
	dir      string
	useAlias bool
}

func (f *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.conn, "conn", "c", "", "connection name from the config (prompted when empty)")
	cmd.Flags().StringVarP(&f.run, "run", "r", "", "run name used to derive file names")
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "directory for scripts, logs and data files (default settings.work_dir)")
	cmd.Flags().BoolVar(&f.useAlias, "alias", false, "connect to the catalog alias instead of the database")
}

// execute resolves the connection and runs op with a spinner.
func (a *app) execute(cmd *cobra.Command, op batch.OpType, f targetFlags, items []batch.WorkItem) error {
	c, conn, err := a.connection(f.conn)
	if err != nil {
		return err
	}
	if err := a.guard(op, c, len(items)); err != nil {
		return err
	}
	t := a.target(op, f, conn)

	ctx, cancel := a.runContext(cmd.Context())
	defer cancel()
	return ui.RunSteps([]ui.Step{{
		Title: fmt.Sprintf("%s %s on %s (%d items)", op, t.Run, c.Name, len(items)),
		Run: func() error {
			_, err := a.client().Do(ctx, op, t, items)
			return err
		},
	}})
}

func (a *app) target(op batch.OpType, f targetFlags, conn db2.Conn) db2.Target {
	run := f.run
	if run == "" {
		run = string(op) + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
		a.log.Info("no run name given", "run", run)
	}
	dir := f.dir
	if dir == "" {
		dir = a.cfg.Settings.WorkDir
	}
	return db2.Target{Dir: dir, Run: run, Conn: conn, UseAlias: f.useAlias}
}

// parseItems reads name=statement pairs, keeping their order.
func parseItems(raw []string) ([]batch.WorkItem, error) {
	items := make([]batch.WorkItem, 0, len(raw))
	for _, r := range raw {
		name, stmt, ok := strings.Cut(r, "=")
		name, stmt = strings.TrimSpace(name), strings.TrimSpace(stmt)
		if !ok || name == "" || stmt == "" {
			return nil, fmt.Errorf("invalid item %q, want name=statement", r)
		}
		items = append(items, batch.WorkItem{Name: name, Statement: stmt})
	}
	return items, nil
}

func newDataCmd(a *app, op batch.OpType, short string) *cobra.Command {
	var (
		f   targetFlags
		raw []string
	)
	cmd := &cobra.Command{
		Use:   string(op) + " --item NAME=STATEMENT...",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(raw)
			if err != nil {
				return err
			}
			if op == batch.Import && f.run == "" {
				return fmt.Errorf("--run is required to find the exported files")
			}
			return a.execute(cmd, op, f, items)
		},
	}
	f.register(cmd)
	cmd.Flags().StringArrayVarP(&raw, "item", "i", nil, "NAME=STATEMENT, repeatable; order is kept")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func newTablesCmd(a *app, op batch.OpType, short string) *cobra.Command {
	var f targetFlags
	cmd := &cobra.Command{
		Use:   string(op) + " TABLE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd, op, f, batch.TableItems(args))
		},
	}
	f.register(cmd)
	return cmd
}

func newGrantCmd(a *app) *cobra.Command {
	var (
		f    targetFlags
		to   string
		priv batch.Privileges
	)
	cmd := &cobra.Command{
		Use:   "grant --to GRANTEE TABLE...",
		Short: "Grant table privileges WITH GRANT OPTION",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items := batch.GrantItems(args, to, priv)
			if len(items) == 0 {
				return fmt.Errorf("select at least one of --select, --insert, --update, --delete")
			}
			return a.execute(cmd, batch.Raw, f, items)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "user or group receiving the privileges")
	cmd.Flags().BoolVar(&priv.Select, "select", false, "grant SELECT")
	cmd.Flags().BoolVar(&priv.Insert, "insert", false, "grant INSERT")
	cmd.Flags().BoolVar(&priv.Update, "update", false, "grant UPDATE")
	cmd.Flags().BoolVar(&priv.Delete, "delete", false, "grant DELETE")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRawCmd(a *app) *cobra.Command {
	var (
		f   targetFlags
		raw []string
	)
	cmd := &cobra.Command{
		Use:   "raw --item NAME=STATEMENT...",
		Short: "Run arbitrary command line processor statements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(raw)
			if err != nil {
				return err
			}
			return a.execute(cmd, batch.Raw, f, items)
		},
	}
	f.register(cmd)
	cmd.Flags().StringArrayVarP(&raw, "item", "i", nil, "NAME=STATEMENT, repeatable; order is kept")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "login CONNECTION",
		Short: "Store a connection password in the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.cfg.Connection(args[0]); err != nil {
				return err
			}
			store, err := keyring.New(a.cfg.Settings.KeyringService)
			if err != nil {
				return err
			}
			if remove {
				return store.Delete(args[0])
			}
			pw, err := ui.Password(fmt.Sprintf("Password for %s:", args[0]))
			if err != nil {
				return err
			}
			if err := store.SetPassword(args[0], pw); err != nil {
				return err
			}
			a.log.Info("password stored", "connection", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "delete the stored password instead")
	return cmd
}
