package batch

import (
	"context"
	"fmt"
	"path/filepath"
)

// Request is one batch operation.
type Request struct {
	Op       OpType
	Dir      string
	Run      string
	Conn     Conn
	UseAlias bool
	Items    []WorkItem
}

// Result describes a successful run.
type Result struct {
	Artifacts  Artifacts
	CommandLog string   // contents
	Kept       []string // data files left for a later import
}

// Runner drives a request through script generation, launch, completion
// polling, log validation and cleanup. A Runner handles one request at a
// time; two runs must not share a (Dir, Run) pair.
type Runner struct {
	Launcher    Launcher
	Waiter      Waiter
	Timing      Timing
	CommitCount int
	Log         Logger
}

func NewRunner(l Launcher, log Logger) *Runner {
	if log == nil {
		log = nopLogger{}
	}
	return &Runner{Launcher: l, Timing: DefaultTiming, CommitCount: DefaultCommitCount, Log: log}
}

func (r *Runner) logger() Logger {
	if r.Log == nil {
		return nopLogger{}
	}
	return r.Log
}

func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	log := r.logger()
	op, err := ParseOpType(string(req.Op))
	if err != nil {
		return Result{}, err
	}
	if req.Run == "" {
		return Result{}, validationErr("run name is required")
	}
	if len(req.Items) == 0 {
		return Result{}, validationErr("no work items for %s", op)
	}
	dir, err := filepath.Abs(req.Dir)
	if err != nil {
		return Result{}, processingErr("resolve directory", req.Dir, err)
	}
	log.Debug("file directory for execution", "op", op, "dir", dir)

	n := Namer{Dir: dir, Run: req.Run, Op: op}
	art := n.Artifacts(req.Items)

	lines, err := BuildScript(op, n, req.Conn, req.UseAlias, req.Items, r.CommitCount)
	if err != nil {
		return Result{}, err
	}
	if err := r.prepare(op, art); err != nil {
		return Result{}, err
	}
	log.Debug("creating command file", "script", art.Script, "items", len(req.Items))
	if err := writeLines(art.Script, lines, 0o600); err != nil {
		return Result{}, processingErr("write command file", art.Script, err)
	}

	launch, err := r.Launcher.Launch(ctx, Invocation{
		Script:  art.Script,
		Log:     art.CommandLog,
		WorkDir: dir,
		Stub:    n.Stub(),
		Conn:    req.Conn,
	})
	art.Stub = launch.Stub
	if err != nil {
		return Result{Artifacts: art}, processingErr("attempt to run "+launch.Command+" failed", art.Script, err)
	}
	log.Debug("execution returned", "code", launch.ExitCode)
	if launch.ExitCode != 0 {
		return Result{Artifacts: art}, &Error{
			Kind: ErrProcessing,
			Msg:  fmt.Sprintf("attempt to run %s returned %d", launch.Command, launch.ExitCode),
			Path: art.Script,
			Log:  string(launch.Output),
		}
	}

	await := art.AwaitPath(op)
	log.Debug("waiting for log file to be created", "path", await)
	if err := awaitCompletion(ctx, r.Waiter, r.Timing, art.CommandLog, await); err != nil {
		return Result{Artifacts: art}, err
	}

	log.Debug("checking command log for completion", "log", art.CommandLog)
	text, err := validateLog(ctx, r.Waiter, r.Timing, art.CommandLog, log)
	if err != nil {
		return Result{Artifacts: art}, err
	}

	res := Result{Artifacts: art, CommandLog: text}
	if op == Export {
		res.Kept = art.DataFiles
	}
	cleanup(op, art, log)
	return res, nil
}

// prepare removes leftovers of a previous run with the same name. Export
// data files are removed here; for every other type they are left for the
// post-run cleanup since an import consumes what an export produced.
func (r *Runner) prepare(op OpType, art Artifacts) error {
	log := r.logger()
	stale := []string{art.Script, art.CommandLog}
	stale = append(stale, art.DataLogs...)
	if op == Export {
		stale = append(stale, art.DataFiles...)
	} else if op.MovesData() {
		for _, f := range art.DataFiles {
			log.Info("data file is removed after a successful run", "file", f)
		}
	}
	for _, f := range stale {
		removed, err := removeIfExists(f)
		if err != nil {
			return processingErr("delete stale file", f, err)
		}
		if removed {
			log.Debug("deleted old file", "file", f)
		}
	}
	return nil
}
