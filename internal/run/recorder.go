package run

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Recorder is a Runner for tests. It records every command and answers
// from a script of canned results keyed by command prefix.
type Recorder struct {
	// Commands holds every invocation in order.
	Commands []Command

	// Results maps a command-line prefix (as rendered by
	// Command.String) to a canned outcome. The first matching prefix
	// wins; unmatched commands succeed with no output.
	Results map[string]Result
}

// Result is a scripted outcome for a recorded command.
type Result struct {
	Output string
	Err    error
}

// NewRecorder returns an empty Recorder where every command succeeds.
func NewRecorder() *Recorder {
	return &Recorder{Results: make(map[string]Result)}
}

// Script registers a canned outcome for commands matching the prefix.
func (r *Recorder) Script(prefix string, output string, err error) {
	if r.Results == nil {
		r.Results = make(map[string]Result)
	}
	r.Results[prefix] = Result{Output: output, Err: err}
}

func (r *Recorder) lookup(cmd Command) Result {
	line := cmd.String()
	for prefix, res := range r.Results {
		if strings.HasPrefix(line, prefix) {
			return res
		}
	}
	return Result{}
}

func (r *Recorder) Stream(_ context.Context, cmd Command, stdout, _ io.Writer) error {
	r.Commands = append(r.Commands, cmd)
	res := r.lookup(cmd)
	if res.Output != "" && stdout != nil {
		fmt.Fprint(stdout, res.Output)
	}
	return res.Err
}

func (r *Recorder) Output(_ context.Context, cmd Command) (string, error) {
	r.Commands = append(r.Commands, cmd)
	res := r.lookup(cmd)
	return res.Output, res.Err
}

// Ran reports whether any recorded command line starts with prefix.
func (r *Recorder) Ran(prefix string) bool {
	for _, cmd := range r.Commands {
		if strings.HasPrefix(cmd.String(), prefix) {
			return true
		}
	}
	return false
}
