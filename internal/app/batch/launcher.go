package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// CommandRunner starts a process and blocks until it exits.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (exitCode int, output []byte, err error)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err == nil {
		return 0, out.Bytes(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// a nonzero exit is reported through the code, not as an error
		return exitErr.ExitCode(), out.Bytes(), nil
	}
	return -1, out.Bytes(), err
}

// Invocation is everything a Launcher needs to start one run.
type Invocation struct {
	Script  string
	Log     string
	WorkDir string
	Stub    string
	Conn    Conn
}

type Launch struct {
	ExitCode int
	Command  string
	Output   []byte
	Stub     string // generated stub script, if any
}

// Launcher starts the command line processor against a script.
type Launcher interface {
	Launch(ctx context.Context, inv Invocation) (Launch, error)
}

func toolArgs(tool string, inv Invocation) []string {
	return []string{tool, "-stf", inv.Script, "-z", inv.Log}
}

// DirectLauncher runs the tool through its command window launcher (windows).
type DirectLauncher struct {
	Shell  string // db2cmd
	Tool   string // db2
	Runner CommandRunner
	Log    Logger
}

func (l DirectLauncher) Launch(ctx context.Context, inv Invocation) (Launch, error) {
	args := toolArgs(l.Tool, inv)
	res := Launch{Command: shellquote.Join(append([]string{l.Shell}, args...)...)}
	l.Log.Debug("executing command file", "script", inv.Script, "log", inv.Log)
	code, out, err := l.Runner.Run(ctx, "", l.Shell, args...)
	res.ExitCode, res.Output = code, out
	return res, err
}

// StubLauncher writes a small shell script that sources the connection's
// profile before calling the tool, then runs it from the work dir.
type StubLauncher struct {
	Tool   string
	Runner CommandRunner
	Log    Logger
}

const stubPerm os.FileMode = 0o744

func (l StubLauncher) Launch(ctx context.Context, inv Invocation) (Launch, error) {
	lines := []string{"#!/bin/sh"}
	if inv.Conn.Profile != "" {
		lines = append(lines, ". "+shellquote.Join(inv.Conn.Profile))
	} else {
		l.Log.Warn("no profile specified for connection, unexpected results may ensue", "database", inv.Conn.Database)
	}
	lines = append(lines, shellquote.Join(toolArgs(l.Tool, inv)...))

	res := Launch{Command: inv.Stub, Stub: inv.Stub}
	if err := writeLines(inv.Stub, lines, stubPerm); err != nil {
		return res, fmt.Errorf("write stub: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(inv.Stub, stubPerm); err != nil {
		l.Log.Error("unable to set permissions on stub", "stub", inv.Stub, "err", err)
	}

	l.Log.Debug("executing command file", "script", inv.Script, "stub", inv.Stub, "log", inv.Log)
	code, out, err := l.Runner.Run(ctx, inv.WorkDir, inv.Stub)
	res.ExitCode, res.Output = code, out
	return res, err
}

type LauncherConfig struct {
	Tool   string
	Shell  string
	Runner CommandRunner
}

// NewLauncher picks the launcher for goos once, at startup.
func NewLauncher(goos string, cfg LauncherConfig, log Logger) Launcher {
	if cfg.Tool == "" {
		cfg.Tool = "db2"
	}
	if cfg.Shell == "" {
		cfg.Shell = "db2cmd"
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if log == nil {
		log = nopLogger{}
	}
	if goos == "windows" {
		return DirectLauncher{Shell: cfg.Shell, Tool: cfg.Tool, Runner: cfg.Runner, Log: log}
	}
	return StubLauncher{Tool: cfg.Tool, Runner: cfg.Runner, Log: log}
}
