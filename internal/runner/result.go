package runner

import "strconv"

// Result holds the outcome of one adb invocation.
//
// Exactly one of ExitCode and Signal is set: ExitCode when the process
// terminated normally, Signal when it was killed.
type Result struct {
	RunID      string   // unique identifier for this run
	Executable string   // resolved adb path or name
	Args       []string // arguments as passed to the process
	ExitCode   *int     // nil if the process was killed by a signal
	Signal     string   // terminating signal name, e.g. "SIGKILL"
	Stdout     []byte   // captured stdout
	Stderr     []byte   // captured stderr
}

// Code returns the exit code and whether the process exited normally.
func (r *Result) Code() (int, bool) {
	if r.ExitCode == nil {
		return 0, false
	}
	return *r.ExitCode, true
}

// Killed reports whether the process was terminated by a signal.
func (r *Result) Killed() bool {
	return r.Signal != ""
}

// Failed reports whether the run was killed or exited with a nonzero status.
func (r *Result) Failed() bool {
	if r.Killed() {
		return true
	}
	return r.ExitCode != nil && *r.ExitCode != 0
}

// Status renders the termination state, e.g. "exited 0" or "killed SIGKILL".
func (r *Result) Status() string {
	if r.Killed() {
		return "killed " + r.Signal
	}
	code, _ := r.Code()
	return "exited " + strconv.Itoa(code)
}
