// Package cli implements the pingraph command-line interface.
//
// Commands edit graph snapshot files in place (new, add, link, unlink,
// remove), display them (show, inspect, types), convert and render them
// (convert, render), move them in and out of a document store (store), serve
// the store over HTTP (serve) and sync a graph between a client and a server
// (sync). The CLI is built with cobra and logs through charmbracelet/log.
//
// # Configuration
//
// Settings come from the TOML file loaded by internal/config. --config picks
// another file; --verbose (-v) forces debug logging.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with short timestamps ("14:32:01.45") writing
// to w at the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of an operation together with its elapsed
// time. It is not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond, e.g.
// "Rendered graph.svg (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
