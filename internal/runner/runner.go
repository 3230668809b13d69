// Package runner locates the adb executable and runs it synchronously,
// reporting abnormal termination either as data or as a typed error.
package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// ToolName is the generic adb name, resolved via PATH.
	ToolName = "adb"
	// FallbackName is the prebuilt Windows binary inside the prebuilt directory.
	FallbackName = "adb.exe"
	// ExecOutCommand prefixes raw passthrough invocations.
	ExecOutCommand = "exec-out"
)

// Runner executes adb. The executable is resolved lazily on first use and
// cached for the Runner's lifetime.
type Runner struct {
	PrebuiltDir string  // holds platform-specific fallback binaries
	Platform    string  // GOOS-style identifier; runtime.GOOS when empty
	Spawner     Spawner // ExecSpawner when nil

	mu         sync.Mutex
	executable string
}

// New returns a Runner that falls back to binaries in prebuiltDir.
func New(prebuiltDir string) *Runner {
	return &Runner{
		PrebuiltDir: prebuiltDir,
		Platform:    runtime.GOOS,
		Spawner:     ExecSpawner{},
	}
}

// IsWindows reports whether platform names the Windows family.
// Both "windows" and "win32" style identifiers are accepted.
func IsWindows(platform string) bool {
	return strings.HasPrefix(strings.ToLower(platform), "win")
}

// Resolve picks the adb executable for platform. On Windows, probe is
// called to check whether the generic name can be launched; a probe
// error selects the prebuilt fallback. Elsewhere probe is never called.
func Resolve(platform, prebuiltDir string, probe func() error) string {
	if IsWindows(platform) && probe() != nil {
		return filepath.Join(prebuiltDir, FallbackName)
	}
	return ToolName
}

// Executable returns the resolved adb path or name. The Windows probe runs
// at most once per Runner.
func (r *Runner) Executable(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.executable != "" {
		return r.executable
	}
	// The choice is cached for good, so a cancelled caller must not turn
	// into "adb cannot be launched".
	probeCtx := context.WithoutCancel(ctx)
	r.executable = Resolve(r.platform(), r.PrebuiltDir, func() error {
		_, err := r.spawner().Spawn(probeCtx, ToolName, nil, Options{})
		return err
	})
	return r.executable
}

// Exec runs adb with args and returns its result. A nonzero exit or a
// signal is reported in the Result, not as an error; the error is non-nil
// only if adb could not be launched.
func (r *Runner) Exec(ctx context.Context, args []string) (*Result, error) {
	return r.run(ctx, args, Options{})
}

// ExecOrFail is Exec followed by Check.
func (r *Runner) ExecOrFail(ctx context.Context, args []string) (*Result, error) {
	return orFail(r.Exec(ctx, args))
}

// ExecOut runs "adb exec-out args..." capturing raw output. opts are
// merged over the raw default, so a caller-set Encoding takes effect.
func (r *Runner) ExecOut(ctx context.Context, args []string, opts Options) (*Result, error) {
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, ExecOutCommand)
	argv = append(argv, args...)
	return r.run(ctx, argv, Options{Encoding: EncodingRaw}.merge(opts))
}

// ExecOutOrFail is ExecOut followed by Check.
func (r *Runner) ExecOutOrFail(ctx context.Context, args []string, opts Options) (*Result, error) {
	return orFail(r.ExecOut(ctx, args, opts))
}

func (r *Runner) run(ctx context.Context, args []string, opts Options) (*Result, error) {
	exe := r.Executable(ctx)

	res, err := r.spawner().Spawn(ctx, exe, args, opts)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", exe, err)
	}
	res.RunID = uuid.New().String()
	res.Executable = exe
	res.Args = args
	return res, nil
}

func orFail(res *Result, err error) (*Result, error) {
	if err != nil {
		return nil, err
	}
	if err := Check(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) platform() string {
	if r.Platform == "" {
		return runtime.GOOS
	}
	return r.Platform
}

func (r *Runner) spawner() Spawner {
	if r.Spawner == nil {
		return ExecSpawner{}
	}
	return r.Spawner
}
