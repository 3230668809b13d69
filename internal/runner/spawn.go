package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Encoding selects how captured output is handed back.
type Encoding string

const (
	// EncodingRaw leaves captured bytes untouched.
	EncodingRaw Encoding = "buffer"
	// EncodingText normalises CRLF to LF and replaces invalid UTF-8.
	EncodingText Encoding = "utf8"
)

// Options are the capture options passed to a Spawner.
// Zero values mean "not set".
type Options struct {
	Encoding Encoding // empty means raw
	Dir      string   // working directory
	Env      []string // replaces the inherited environment when non-empty
	Stdin    []byte   // fed to the process's standard input
}

// merge returns o with every field set in over replacing its own.
func (o Options) merge(over Options) Options {
	if over.Encoding != "" {
		o.Encoding = over.Encoding
	}
	if over.Dir != "" {
		o.Dir = over.Dir
	}
	if len(over.Env) > 0 {
		o.Env = over.Env
	}
	if over.Stdin != nil {
		o.Stdin = over.Stdin
	}
	return o
}

// Spawner runs a process to completion and captures its output.
// It returns an error only when the process could not be started.
type Spawner interface {
	Spawn(ctx context.Context, name string, args []string, opts Options) (*Result, error)
}

// ExecSpawner is the os/exec backed Spawner.
type ExecSpawner struct{}

// Spawn implements Spawner.
func (ExecSpawner) Spawn(ctx context.Context, name string, args []string, opts Options) (*Result, error) {
	//nolint:gosec // running adb with caller arguments is the point
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Never started: not found, permission denied, ...
			return nil, err
		}
	}

	code, signal := exitStatus(cmd.ProcessState)
	return &Result{
		ExitCode: code,
		Signal:   signal,
		Stdout:   decode(stdout.Bytes(), opts.Encoding),
		Stderr:   decode(stderr.Bytes(), opts.Encoding),
	}, nil
}

func decode(b []byte, enc Encoding) []byte {
	if enc != EncodingText {
		return b
	}
	s := strings.ToValidUTF8(string(b), "�")
	return []byte(strings.ReplaceAll(s, "\r\n", "\n"))
}
