package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

const EnvLogLevel = "DB2BATCH_LOG_LEVEL"

type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	Disabled
)

// Logger matches batch.Logger.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

type Options struct {
	Format string // console or json
	Level  string // empty falls back to $DB2BATCH_LOG_LEVEL, then info
	Out    io.Writer
}

func New(opts Options) (Logger, error) {
	lvl, ok := ParseLevel(opts.Level)
	if !ok && opts.Level != "" {
		return nil, fmt.Errorf("unknown log level %q", opts.Level)
	}
	if !ok {
		if envLvl, envOK := ParseLevel(os.Getenv(EnvLogLevel)); envOK {
			lvl = envLvl
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(opts.Format) {
	case "", "console":
		return NewConsole(out, lvl), nil
	case "json":
		return NewJSON(out, lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

func ParseLevel(raw string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return InfoLevel, false
	case "trace":
		return TraceLevel, true
	case "debug":
		return DebugLevel, true
	case "info":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "disabled", "off", "none":
		return Disabled, true
	default:
		return InfoLevel, false
	}
}

// Console writes human readable lines through pterm.
type Console struct {
	l   *pterm.Logger
	off bool
}

func NewConsole(out io.Writer, lvl Level) *Console {
	levels := map[Level]pterm.LogLevel{
		TraceLevel: pterm.LogLevelTrace,
		DebugLevel: pterm.LogLevelDebug,
		InfoLevel:  pterm.LogLevelInfo,
		WarnLevel:  pterm.LogLevelWarn,
		ErrorLevel: pterm.LogLevelError,
	}
	pl := pterm.DefaultLogger.WithWriter(out).WithTime(true).WithLevel(levels[lvl])
	return &Console{l: pl, off: lvl == Disabled}
}

func (c *Console) Debug(msg string, kv ...any) {
	if !c.off {
		c.l.Debug(msg, c.l.Args(kv...))
	}
}

func (c *Console) Info(msg string, kv ...any) {
	if !c.off {
		c.l.Info(msg, c.l.Args(kv...))
	}
}

func (c *Console) Warn(msg string, kv ...any) {
	if !c.off {
		c.l.Warn(msg, c.l.Args(kv...))
	}
}

func (c *Console) Error(msg string, kv ...any) {
	if !c.off {
		c.l.Error(msg, c.l.Args(kv...))
	}
}

// JSON writes one zerolog event per line.
type JSON struct {
	l zerolog.Logger
}

func NewJSON(out io.Writer, lvl Level) *JSON {
	levels := map[Level]zerolog.Level{
		TraceLevel: zerolog.TraceLevel,
		DebugLevel: zerolog.DebugLevel,
		InfoLevel:  zerolog.InfoLevel,
		WarnLevel:  zerolog.WarnLevel,
		ErrorLevel: zerolog.ErrorLevel,
		Disabled:   zerolog.Disabled,
	}
	l := zerolog.New(out).Level(levels[lvl]).With().Timestamp().Str("app", "db2batch").Logger()
	return &JSON{l: l}
}

func (j *JSON) Debug(msg string, kv ...any) { j.l.Debug().Fields(kv).Msg(msg) }
func (j *JSON) Info(msg string, kv ...any)  { j.l.Info().Fields(kv).Msg(msg) }
func (j *JSON) Warn(msg string, kv ...any)  { j.l.Warn().Fields(kv).Msg(msg) }
func (j *JSON) Error(msg string, kv ...any) { j.l.Error().Fields(kv).Msg(msg) }
