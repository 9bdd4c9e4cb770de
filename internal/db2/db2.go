package db2

import (
	"context"
	"fmt"
	"os"

	"github.com/jayps/db2batch/internal/app/batch"
)

type (
	Conn       = batch.Conn
	WorkItem   = batch.WorkItem
	Privileges = batch.Privileges
)

// Target says where a run's files live and which database it talks to.
type Target struct {
	Dir      string
	Run      string
	Conn     Conn
	UseAlias bool
}

type Client struct {
	runner *batch.Runner
	log    batch.Logger
}

func New(r *batch.Runner, log batch.Logger) *Client {
	return &Client{runner: r, log: log}
}

// Export writes one IXF file per item. The files are left in t.Dir for a
// later Import of the same run name.
func (c *Client) Export(ctx context.Context, t Target, items []WorkItem) error {
	_, err := c.Do(ctx, batch.Export, t, items)
	return err
}

// Import loads the IXF files an Export of the same run produced and
// removes them afterwards.
func (c *Client) Import(ctx context.Context, t Target, items []WorkItem) error {
	_, err := c.Do(ctx, batch.Import, t, items)
	return err
}

func (c *Client) RunStats(ctx context.Context, t Target, tables []string) error {
	_, err := c.Do(ctx, batch.RunStats, t, batch.TableItems(tables))
	return err
}

func (c *Client) Reorg(ctx context.Context, t Target, tables []string) error {
	_, err := c.Do(ctx, batch.Reorg, t, batch.TableItems(tables))
	return err
}

func (c *Client) Truncate(ctx context.Context, t Target, tables []string) error {
	_, err := c.Do(ctx, batch.Truncate, t, batch.TableItems(tables))
	return err
}

func (c *Client) Grant(ctx context.Context, t Target, tables []string, grantee string, p Privileges) error {
	items := batch.GrantItems(tables, grantee, p)
	if len(items) == 0 {
		return fmt.Errorf("grant: no privileges selected: %w", batch.ErrValidation)
	}
	_, err := c.Do(ctx, batch.Raw, t, items)
	return err
}

func (c *Client) Raw(ctx context.Context, t Target, items []WorkItem) error {
	_, err := c.Do(ctx, batch.Raw, t, items)
	return err
}

// Do runs any operation type, including ones parsed from user input.
func (c *Client) Do(ctx context.Context, op batch.OpType, t Target, items []WorkItem) (batch.Result, error) {
	res, err := c.runner.Run(ctx, batch.Request{
		Op:       op,
		Dir:      t.Dir,
		Run:      t.Run,
		Conn:     t.Conn,
		UseAlias: t.UseAlias,
		Items:    items,
	})
	if err != nil {
		c.log.Error("error during processing", "op", op, "run", t.Run, "err", err)
		return res, fmt.Errorf("%s %s: %w", op, t.Run, err)
	}
	for _, f := range res.Kept {
		if fi, err := os.Stat(f); err == nil {
			c.log.Info("exported", "file", f, "size", humanSize(fi.Size()))
		}
	}
	return res, nil
}

// humanSize returns a human-friendly file size using binary units.
func humanSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	var i int
	for n := b / unit; n >= unit; n /= unit {
		i++
	}
	prefix := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	if i >= len(prefix) {
		return fmt.Sprintf("%d B", b)
	}
	return fmt.Sprintf("%.1f %s", float64(b)/float64(int64(unit)<<(10*i)), prefix[i])
}
