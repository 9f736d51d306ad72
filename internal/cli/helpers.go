package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/aretw0/holon/internal/logging"
)

// ErrInterrupted is the cancellation cause recorded when a signal stops a
// command.
var ErrInterrupted = errors.New("interrupted")

// SignalContext is cancelled on SIGINT or SIGTERM and remembers which signal
// arrived. context.Cause reports ErrInterrupted in that case.
type SignalContext struct {
	context.Context
	cancel context.CancelCauseFunc
	sig    atomic.Value
}

// NewSignalContext starts listening for signals until the context ends.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancelCause(parent)
	sc := &SignalContext{Context: ctx, cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			sc.sig.Store(sig)
			cancel(fmt.Errorf("%w by %s", ErrInterrupted, sig))
		case <-ctx.Done():
		}
	}()
	return sc
}

// Cancel stops listening and cancels the context.
func (sc *SignalContext) Cancel() { sc.cancel(context.Canceled) }

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sig, _ := sc.sig.Load().(os.Signal)
	return sig
}

// NewLogger configures the application logger. Logs go to stderr so that
// stdout stays machine-readable; --debug forces the debug level.
func NewLogger(level string, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug), nil
	}
	return logging.FromLevel(level)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// isInterrupted reports errors caused by the user stopping the command.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrInterrupted)
}
