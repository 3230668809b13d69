//go:build !unix

package runner

import "os"

// Outside unix there is no portable notion of a terminating signal; a
// killed process reports whatever exit code the OS assigned it.
func exitStatus(ps *os.ProcessState) (*int, string) {
	code := ps.ExitCode()
	return &code, ""
}
