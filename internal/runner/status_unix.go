//go:build unix

package runner

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func exitStatus(ps *os.ProcessState) (*int, string) {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		if name := unix.SignalName(sig); name != "" {
			return nil, name
		}
		return nil, sig.String()
	}
	code := ps.ExitCode()
	return &code, ""
}
