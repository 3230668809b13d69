package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spawnCall struct {
	name string
	args []string
	opts Options
}

// fakeSpawner records calls and fails to launch any name in missing.
type fakeSpawner struct {
	calls   []spawnCall
	missing map[string]bool
	result  Result
}

func (f *fakeSpawner) Spawn(ctx context.Context, name string, args []string, opts Options) (*Result, error) {
	f.calls = append(f.calls, spawnCall{name: name, args: args, opts: opts})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.missing[name] {
		return nil, exec.ErrNotFound
	}
	res := f.result
	if res.ExitCode == nil && res.Signal == "" {
		zero := 0
		res.ExitCode = &zero
	}
	return &res, nil
}

func (f *fakeSpawner) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

// installFakeADB puts a shell script named adb first on PATH.
func installFakeADB(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for adb needs a unix shell")
	}
	dir := t.TempDir()
	script := `#!/bin/sh
case "$1" in
  ok) printf 'hello\n' ;;
  fail) printf 'boom\n' >&2; printf 'partial\n'; exit 3 ;;
  kill) kill -9 $$ ;;
  sleep) exec sleep 30 ;;
  crlf) printf 'a\r\nb\r\n' ;;
  exec-out) shift; printf 'out:%s\r\n' "$*" ;;
esac
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "adb"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestIsWindows(t *testing.T) {
	assert.True(t, IsWindows("windows"))
	assert.True(t, IsWindows("win32"))
	assert.False(t, IsWindows("linux"))
	assert.False(t, IsWindows("darwin"))
	assert.False(t, IsWindows(""))
}

func TestResolve_NonWindowsNeverProbes(t *testing.T) {
	for _, platform := range []string{"linux", "darwin", "freebsd"} {
		got := Resolve(platform, "/opt/prebuilt", func() error {
			t.Fatalf("probe called on %s", platform)
			return nil
		})
		assert.Equal(t, ToolName, got, platform)
	}
}

func TestResolve_Windows(t *testing.T) {
	dir := filepath.Join("C:", "prebuilt")
	assert.Equal(t, ToolName, Resolve("windows", dir, func() error { return nil }))
	assert.Equal(t, filepath.Join(dir, FallbackName), Resolve("windows", dir, func() error { return exec.ErrNotFound }))
}

func TestExecutable_NonWindowsIgnoresPrebuiltDir(t *testing.T) {
	f := &fakeSpawner{}
	r := &Runner{PrebuiltDir: t.TempDir(), Platform: "linux", Spawner: f}
	assert.Equal(t, ToolName, r.Executable(context.Background()))
	assert.Empty(t, f.calls)
}

func TestExecutable_WindowsFallbackWhenMissing(t *testing.T) {
	f := &fakeSpawner{missing: map[string]bool{ToolName: true}}
	dir := t.TempDir()
	r := &Runner{PrebuiltDir: dir, Platform: "windows", Spawner: f}
	assert.Equal(t, filepath.Join(dir, FallbackName), r.Executable(context.Background()))
}

func TestExecutable_WindowsPrefersInstalled(t *testing.T) {
	// adb with no arguments exits nonzero; it still counts as launched.
	one := 1
	f := &fakeSpawner{result: Result{ExitCode: &one}}
	r := &Runner{PrebuiltDir: t.TempDir(), Platform: "windows", Spawner: f}
	assert.Equal(t, ToolName, r.Executable(context.Background()))
}

func TestExecutable_ProbesOnce(t *testing.T) {
	ctx := context.Background()
	f := &fakeSpawner{missing: map[string]bool{ToolName: true}}
	r := &Runner{PrebuiltDir: t.TempDir(), Platform: "windows", Spawner: f}

	first := r.Executable(ctx)
	assert.Equal(t, first, r.Executable(ctx))
	for i := 0; i < 5; i++ {
		_, err := r.Exec(ctx, []string{"devices"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.count(ToolName))
	assert.Equal(t, 5, f.count(first))
}

func TestExecutable_NotRevisited(t *testing.T) {
	ctx := context.Background()
	f := &fakeSpawner{missing: map[string]bool{ToolName: true}}
	r := &Runner{PrebuiltDir: t.TempDir(), Platform: "windows", Spawner: f}
	first := r.Executable(ctx)

	// adb shows up on PATH later; the cached choice stands.
	f.missing = nil
	assert.Equal(t, first, r.Executable(ctx))
}

func TestExecOut_PrefixesAndForcesRaw(t *testing.T) {
	f := &fakeSpawner{}
	r := &Runner{Platform: "linux", Spawner: f}

	_, err := r.ExecOut(context.Background(), []string{"pull", "/x"}, Options{})
	require.NoError(t, err)
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"exec-out", "pull", "/x"}, f.calls[0].args)
	assert.Equal(t, EncodingRaw, f.calls[0].opts.Encoding)
}

func TestExecOut_MergesCallerOptions(t *testing.T) {
	f := &fakeSpawner{}
	r := &Runner{Platform: "linux", Spawner: f}

	_, err := r.ExecOut(context.Background(), []string{"ls"}, Options{Dir: "/tmp", Stdin: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, EncodingRaw, f.calls[0].opts.Encoding)
	assert.Equal(t, "/tmp", f.calls[0].opts.Dir)
	assert.Equal(t, []byte("x"), f.calls[0].opts.Stdin)

	_, err = r.ExecOut(context.Background(), []string{"ls"}, Options{Encoding: EncodingText})
	require.NoError(t, err)
	assert.Equal(t, EncodingText, f.calls[1].opts.Encoding)
}

func TestExecOut_DoesNotAliasCallerArgs(t *testing.T) {
	f := &fakeSpawner{}
	r := &Runner{Platform: "linux", Spawner: f}
	args := make([]string, 1, 4)
	args[0] = "cat"
	_, err := r.ExecOut(context.Background(), args, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, args)
}

func TestExec_Success(t *testing.T) {
	installFakeADB(t)
	r := New(t.TempDir())

	res, err := r.Exec(context.Background(), []string{"ok"})
	require.NoError(t, err)
	code, exited := res.Code()
	assert.True(t, exited)
	assert.Equal(t, 0, code)
	assert.Empty(t, res.Signal)
	assert.Equal(t, "hello\n", string(res.Stdout))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, ToolName, res.Executable)
	assert.False(t, res.Failed())

	res, err = r.ExecOrFail(context.Background(), []string{"ok"})
	require.NoError(t, err)
	assert.Equal(t, "exited 0", res.Status())
}

func TestExec_NonZeroExit(t *testing.T) {
	installFakeADB(t)
	r := New("")

	res, err := r.Exec(context.Background(), []string{"fail"})
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 3, *res.ExitCode)
	assert.Empty(t, res.Signal)
	assert.Equal(t, "boom\n", string(res.Stderr))
	assert.True(t, res.Failed())

	res, err = r.ExecOrFail(context.Background(), []string{"fail"})
	assert.Nil(t, res)
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, Exited, execErr.Reason)
	assert.Equal(t, 3, execErr.ExitCode)
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "partial")
}

func TestExec_KilledBySignal(t *testing.T) {
	installFakeADB(t)
	r := New("")

	res, err := r.Exec(context.Background(), []string{"kill"})
	require.NoError(t, err)
	assert.Nil(t, res.ExitCode)
	assert.Equal(t, "SIGKILL", res.Signal)
	assert.Equal(t, "killed SIGKILL", res.Status())

	_, err = r.ExecOrFail(context.Background(), []string{"kill"})
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, Killed, execErr.Reason)
	assert.Contains(t, err.Error(), "killed SIGKILL")
	assert.NotContains(t, err.Error(), "exited")
}

func TestExec_LaunchFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH isolation differs on windows")
	}
	t.Setenv("PATH", t.TempDir())
	r := New("")

	res, err := r.Exec(context.Background(), []string{"devices"})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exec.ErrNotFound), "err = %v", err)

	var execErr *ExecError
	assert.False(t, errors.As(err, &execErr))
}

func TestExecOut_RealProcess(t *testing.T) {
	installFakeADB(t)
	r := New("")

	res, err := r.ExecOutOrFail(context.Background(), []string{"cat", "/x"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "out:cat /x\r\n", string(res.Stdout))
	assert.Equal(t, []string{"exec-out", "cat", "/x"}, res.Args)

	res, err = r.ExecOutOrFail(context.Background(), []string{"cat"}, Options{Encoding: EncodingText})
	require.NoError(t, err)
	assert.Equal(t, "out:cat\n", string(res.Stdout))
}

func TestExec_ArgumentsPassedVerbatim(t *testing.T) {
	f := &fakeSpawner{}
	r := &Runner{Platform: "linux", Spawner: f}
	args := []string{"shell", "echo $HOME; rm -rf /", "", "--"}
	res, err := r.Exec(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, args, f.calls[0].args)
	assert.Equal(t, Options{}, f.calls[0].opts)
	assert.Equal(t, args, res.Args)
}

func TestExecutable_CancelledContextDoesNotSelectFallback(t *testing.T) {
	f := &fakeSpawner{}
	r := &Runner{PrebuiltDir: t.TempDir(), Platform: "windows", Spawner: f}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ToolName, r.Executable(ctx))
	assert.Equal(t, ToolName, r.Executable(context.Background()))
	assert.Equal(t, 1, f.count(ToolName))
}

func TestExecutable_CancelledContextWithRealSpawner(t *testing.T) {
	installFakeADB(t)
	r := &Runner{PrebuiltDir: "/prebuilt", Platform: "windows", Spawner: ExecSpawner{}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ToolName, r.Executable(ctx))
	assert.Equal(t, ToolName, r.Executable(context.Background()))
}

func TestExec_ContextCancelKillsChild(t *testing.T) {
	installFakeADB(t)
	r := New("")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := r.Exec(ctx, []string{"sleep"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 20*time.Second)
	assert.Nil(t, res.ExitCode)
	assert.Equal(t, "SIGKILL", res.Signal)
	assert.True(t, res.Failed())
}
