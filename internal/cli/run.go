package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/pkg/domain"
)

// RunOptions contains the configuration for the run command.
type RunOptions struct {
	Source   string
	Workflow string
	Args     map[string]any
	// JSON prints the whole run result as one JSON document.
	JSON bool
}

// Execute runs the workflow once and prints its result. A failed run
// prints its trace and returns the failure.
func Execute(ctx context.Context, eng *holon.Engine, opts RunOptions, w io.Writer) error {
	res, err := eng.Run(ctx, opts.Source, opts.Workflow, opts.Args)
	if res != nil {
		if perr := PrintResult(w, res, opts.JSON); perr != nil {
			return perr
		}
	}
	return err
}

// PrintResult writes a run result as JSON or as a short human report.
func PrintResult(w io.Writer, res *domain.RunResult, jsonMode bool) error {
	if jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	for _, entry := range res.Trace {
		mark := "ok"
		if entry.Status == domain.StatusError {
			mark = "error"
		}
		fmt.Fprintf(w, "  %-5s %s (%s)", mark, entry.NodeID, entry.Duration.Round(time.Microsecond))
		if entry.Error != "" {
			fmt.Fprintf(w, ": %s", entry.Error)
		}
		fmt.Fprintln(w)
	}
	if !res.Succeeded() {
		if res.FailedNode != "" {
			printSystemMessage(w, "Run %s at '%s' node.", res.Phase, res.FailedNode)
		} else {
			printSystemMessage(w, "Run %s: %s", res.Phase, res.Error)
		}
		return nil
	}
	out, err := json.Marshal(res.Output)
	if err != nil {
		out = fmt.Appendf(nil, "%v", res.Output)
	}
	fmt.Fprintf(w, "%s\n", out)
	return nil
}
