package batch

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	ConnectFailureMarker = "SQL1013N"
	TerminateMarker      = "The TERMINATE command completed successfully"
	WarningMarker        = "There is at least one warning message in the message file"
)

// Timing holds the poll settings of a run.
type Timing struct {
	PollInterval  time.Duration // completion poll
	CheckInterval time.Duration // terminate marker re-read
	MaxChecks     int
}

var DefaultTiming = Timing{
	PollInterval:  5 * time.Second,
	CheckInterval: 6 * time.Second,
	MaxChecks:     10,
}

// awaitCompletion blocks until awaitPath exists. The only early exit,
// besides ctx, is the connection failure signature in the command log.
func awaitCompletion(ctx context.Context, w Waiter, t Timing, commandLog, awaitPath string) error {
	err := w.WaitUntil(ctx, t.PollInterval, 0, func() (bool, error) {
		if fileExists(awaitPath) {
			return true, nil
		}
		if !fileExists(commandLog) {
			return false, nil
		}
		text, err := readText(commandLog)
		if err != nil {
			return false, processingErr("read command log", commandLog, err)
		}
		if strings.Contains(text, ConnectFailureMarker) {
			return false, infraErr("unable to connect to database", text)
		}
		return false, nil
	})
	return wrapWaitErr(err, "waiting for "+awaitPath)
}

// validateLog waits for the terminate marker, re-reading the log up to
// MaxChecks+1 times after the first read, and then rejects logs that report
// a warning. It returns the final log text.
func validateLog(ctx context.Context, w Waiter, t Timing, commandLog string, log Logger) (string, error) {
	var text string
	err := w.WaitUntil(ctx, t.CheckInterval, t.MaxChecks+2, func() (bool, error) {
		var err error
		if text, err = readText(commandLog); err != nil {
			return false, processingErr("read command log", commandLog, err)
		}
		return strings.Contains(text, TerminateMarker), nil
	})
	if errors.Is(err, ErrAttemptsExhausted) {
		log.Warn("command log incomplete", "log", commandLog, "contents", text)
		return text, &Error{Kind: ErrProcessing, Msg: "command log has not completed", Path: commandLog, Log: text}
	}
	if err != nil {
		return text, wrapWaitErr(err, "validating "+commandLog)
	}

	log.Info("command log contents", "log", commandLog, "contents", text)
	if strings.Contains(text, WarningMarker) {
		return text, &Error{Kind: ErrProcessing, Msg: "warning in message file", Path: commandLog, Log: text}
	}
	return text, nil
}

func wrapWaitErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return processingErr(msg, "", err)
}
