package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/holon"
)

// settle lets editors finish writing before the rerun reads the file.
const settle = 100 * time.Millisecond

// Watch runs the workflow, then reruns it every time its source changes,
// until ctx is cancelled. Failed runs are reported and do not stop the loop.
func Watch(ctx context.Context, eng *holon.Engine, opts RunOptions, w io.Writer, logger *slog.Logger) error {
	changes, err := eng.Watch(ctx)
	if err != nil {
		return err
	}

	printSystemMessage(w, "Watching '%s'.", opts.Source)
	for {
		if err := Execute(ctx, eng, opts, w); err != nil {
			if isInterrupted(err) {
				return nil
			}
			logger.Error("run failed", "source", opts.Source, "err", err)
		}
		printSystemMessage(w, "Waiting for changes...")

		if !waitForChange(ctx, changes, opts.Source, logger) {
			return nil
		}
		fmt.Fprintln(w)
		printSystemMessage(w, "Change detected in '%s'.", opts.Source)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(settle):
		}
	}
}

// waitForChange blocks until source changes. It returns false once ctx is
// done or the store stops reporting.
func waitForChange(ctx context.Context, changes <-chan string, source string, logger *slog.Logger) bool {
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping watcher", "reason", context.Cause(ctx))
			return false
		case name, ok := <-changes:
			if !ok {
				return false
			}
			if name == source {
				return true
			}
			logger.Debug("ignoring change", "source", name)
		}
	}
}
