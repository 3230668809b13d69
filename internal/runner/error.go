package runner

import "fmt"

// Reason says how an abnormal run terminated.
type Reason string

const (
	// Killed means the process was terminated by a signal.
	Killed Reason = "killed"
	// Exited means the process exited with a nonzero status.
	Exited Reason = "exited"
)

// ExecError is returned by the OrFail operations when adb was killed or
// exited with a nonzero status. It carries the full captured output.
type ExecError struct {
	Reason   Reason
	Signal   string // set when Reason is Killed
	ExitCode int    // set when Reason is Exited
	Stdout   []byte
	Stderr   []byte
}

func (e *ExecError) Error() string {
	if e.Reason == Killed {
		return fmt.Sprintf("killed %s, stderr = %s, stdout = %s", e.Signal, e.Stderr, e.Stdout)
	}
	return fmt.Sprintf("exited %d, stderr = %s, stdout = %s", e.ExitCode, e.Stderr, e.Stdout)
}

// Check returns an *ExecError if res failed, nil otherwise.
func Check(res *Result) error {
	if !res.Failed() {
		return nil
	}
	e := &ExecError{Stdout: res.Stdout, Stderr: res.Stderr}
	if res.Killed() {
		e.Reason = Killed
		e.Signal = res.Signal
	} else {
		e.Reason = Exited
		e.ExitCode = *res.ExitCode
	}
	return e
}
