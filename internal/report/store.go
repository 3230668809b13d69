// Package report keeps the results of adb runs so their full output can
// be retrieved by run ID after the invocation returned.
package report

import (
	"fmt"

	"github.com/deixis/adbridge/internal/runner"
)

// Kind identifies how a run was invoked.
type Kind string

const (
	// Exec is a plain adb invocation.
	Exec Kind = "exec"
	// ExecOut is an "adb exec-out" raw passthrough invocation.
	ExecOut Kind = "exec-out"
)

// Store persists and retrieves runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Run is the stored form of a runner.Result.
type Run struct {
	ID         string   `json:"id"`
	Kind       Kind     `json:"kind"`
	Executable string   `json:"executable"`
	Args       []string `json:"args"`
	ExitCode   *int     `json:"exit_code,omitempty"`
	Signal     string   `json:"signal,omitempty"`
	Stdout     []byte   `json:"stdout,omitempty"`
	Stderr     []byte   `json:"stderr,omitempty"`
}

// NewRun converts a runner result into a Run.
func NewRun(kind Kind, res *runner.Result) *Run {
	return &Run{
		ID:         res.RunID,
		Kind:       kind,
		Executable: res.Executable,
		Args:       res.Args,
		ExitCode:   res.ExitCode,
		Signal:     res.Signal,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
}

// Result converts the Run back into a runner result.
func (r *Run) Result() *runner.Result {
	return &runner.Result{
		RunID:      r.ID,
		Executable: r.Executable,
		Args:       r.Args,
		ExitCode:   r.ExitCode,
		Signal:     r.Signal,
		Stdout:     r.Stdout,
		Stderr:     r.Stderr,
	}
}

// Stream returns the named output stream ("stdout" or "stderr").
func (r *Run) Stream(name string) ([]byte, error) {
	switch name {
	case "", "stdout":
		return r.Stdout, nil
	case "stderr":
		return r.Stderr, nil
	default:
		return nil, fmt.Errorf("unknown stream %q (want stdout or stderr)", name)
	}
}
