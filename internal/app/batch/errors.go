package batch

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrInfrastructure = errors.New("infrastructure error")
	ErrProcessing     = errors.New("processing error")
)

// Error carries the failure kind plus whatever context is needed to
// diagnose a run without re-executing it.
type Error struct {
	Kind error  // one of ErrValidation, ErrInfrastructure, ErrProcessing
	Msg  string
	Path string // artifact or command involved, if any
	Log  string // command log contents at the time of failure
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Log != "" {
		msg = fmt.Sprintf("%s\n%s", msg, e.Log)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func validationErr(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func infraErr(msg, log string) error {
	return &Error{Kind: ErrInfrastructure, Msg: msg, Log: log}
}

func processingErr(msg, path string, err error) error {
	return &Error{Kind: ErrProcessing, Msg: msg, Path: path, Err: err}
}
