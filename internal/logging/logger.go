package logging

import (
	"context"
	"io"
	"strings"

	"goa.design/clue/log"
)

// #region options
// Options selects the runtime log format.
type Options struct {
	Format string // "json" | "terminal" | "text" | "auto"
	Debug  bool
	Output io.Writer
}

// #endregion options

// #region context
// Context returns ctx carrying a configured clue logger. "auto" picks the
// terminal format on a TTY and JSON otherwise. Entries are written as they
// are logged; nothing is held back waiting for an error.
func Context(ctx context.Context, opts Options) context.Context {
	logOpts := []log.LogOption{log.WithDisableBuffering(unbuffered)}
	switch strings.ToLower(opts.Format) {
	case "json":
		logOpts = append(logOpts, log.WithFormat(log.FormatJSON))
	case "terminal":
		logOpts = append(logOpts, log.WithFormat(log.FormatTerminal))
	case "text":
		logOpts = append(logOpts, log.WithFormat(log.FormatText))
	default:
		if log.IsTerminal() {
			logOpts = append(logOpts, log.WithFormat(log.FormatTerminal))
		} else {
			logOpts = append(logOpts, log.WithFormat(log.FormatJSON))
		}
	}
	if opts.Output != nil {
		logOpts = append(logOpts, log.WithOutput(opts.Output))
	}
	if opts.Debug {
		logOpts = append(logOpts, log.WithDebug())
	}
	return log.Context(ctx, logOpts...)
}

func unbuffered(context.Context) bool { return true }

// #endregion context
