package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jayps/db2batch/internal/app/batch"
	"github.com/jayps/db2batch/internal/config"
	"github.com/jayps/db2batch/internal/ui"
)

// jobWork turns a configured job into an operation and its ordered items.
// "grant" is accepted as an op and expands into raw GRANT statements.
func jobWork(job config.Job) (batch.OpType, []batch.WorkItem, error) {
	if strings.EqualFold(job.Op, "grant") {
		if job.Grant == nil || job.Grant.To == "" {
			return "", nil, fmt.Errorf("job %q: grant needs a grantee", job.Name)
		}
		g := job.Grant
		items := batch.GrantItems(job.Tables, g.To, batch.Privileges{
			Select: g.Select, Insert: g.Insert, Update: g.Update, Delete: g.Delete,
		})
		if len(items) == 0 {
			return "", nil, fmt.Errorf("job %q: no privileges or tables selected", job.Name)
		}
		return batch.Raw, items, nil
	}

	op, err := batch.ParseOpType(job.Op)
	if err != nil {
		return "", nil, fmt.Errorf("job %q: %w", job.Name, err)
	}
	switch op {
	case batch.RunStats, batch.Reorg, batch.Truncate:
		if len(job.Items) == 0 {
			return op, batch.TableItems(job.Tables), nil
		}
	}
	if len(job.Items) == 0 {
		return "", nil, fmt.Errorf("job %q: %s needs items", job.Name, op)
	}
	items := make([]batch.WorkItem, len(job.Items))
	for i, it := range job.Items {
		items[i] = batch.WorkItem{Name: it.Name, Statement: it.Statement}
	}
	return op, items, nil
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run JOB...",
		Short: "Run jobs from the config file in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// resolve and confirm everything before the first job starts
			var steps []ui.Step
			for _, name := range args {
				job, err := a.cfg.Job(name)
				if err != nil {
					return err
				}
				op, items, err := jobWork(*job)
				if err != nil {
					return err
				}
				c, conn, err := a.connection(job.Connection)
				if err != nil {
					return err
				}
				if err := a.guard(op, c, len(items)); err != nil {
					return err
				}
				run := job.Run
				if run == "" {
					run = job.Name
				}
				t := a.target(op, targetFlags{run: run, dir: job.Dir, useAlias: job.UseAlias}, conn)

				steps = append(steps, ui.Step{
					Title: fmt.Sprintf("%s (%s on %s)", job.Name, op, c.Name),
					Run: func() error {
						ctx, cancel := a.runContext(cmd.Context())
						defer cancel()
						_, err := a.client().Do(ctx, op, t, items)
						return err
					},
				})
			}
			return ui.ProgressSteps("Running jobs", steps)
		},
	}
}
