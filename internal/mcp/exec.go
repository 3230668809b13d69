package mcp

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/deixis/adbridge/internal/report"
	"github.com/deixis/adbridge/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

type executableParams struct{}

func (h *handler) executableHandler(ctx context.Context, req *mcp.CallToolRequest, _ executableParams) (*mcp.CallToolResult, any, error) {
	return textResult(fmt.Sprintf("Executable: %s\n", h.runner.Executable(ctx)))
}

type execParams struct {
	Args  []string `json:"args" jsonschema:"arguments passed verbatim to adb, e.g. [\"-s\", \"emulator-5554\", \"shell\", \"getprop\"]"`
	Check bool     `json:"check,omitempty" jsonschema:"report a nonzero exit or signal as a tool error"`
}

func (h *handler) execHandler(ctx context.Context, req *mcp.CallToolRequest, params execParams) (*mcp.CallToolResult, any, error) {
	res, err := h.runner.Exec(ctx, params.Args)
	return h.finish(report.Exec, params.Args, params.Check, res, err)
}

type execOutParams struct {
	Args     []string `json:"args" jsonschema:"arguments following exec-out, e.g. [\"screencap\", \"-p\"]"`
	Encoding string   `json:"encoding,omitempty" jsonschema:"buffer (raw bytes, default) or utf8 (CRLF normalised text)"`
	Check    bool     `json:"check,omitempty" jsonschema:"report a nonzero exit or signal as a tool error"`
}

func (h *handler) execOutHandler(ctx context.Context, req *mcp.CallToolRequest, params execOutParams) (*mcp.CallToolResult, any, error) {
	enc := runner.Encoding(params.Encoding)
	switch enc {
	case "", runner.EncodingRaw, runner.EncodingText:
	default:
		return errorResult(fmt.Sprintf("unknown encoding %q (want %s or %s)", params.Encoding, runner.EncodingRaw, runner.EncodingText))
	}
	res, err := h.runner.ExecOut(ctx, params.Args, runner.Options{Encoding: enc})
	return h.finish(report.ExecOut, params.Args, params.Check, res, err)
}

// finish stores a completed run and renders it. Launch failures and, when
// check is set, abnormal terminations become tool errors.
func (h *handler) finish(kind report.Kind, args []string, check bool, res *runner.Result, err error) (*mcp.CallToolResult, any, error) {
	log := h.log.WithFields(logrus.Fields{"kind": kind, "args": args})
	if err != nil {
		log.WithError(err).Warn("adb could not be launched")
		return errorResult(fmt.Sprintf("Failed to run adb: %v", err))
	}

	log = log.WithFields(logrus.Fields{"run_id": res.RunID, "status": res.Status()})
	if err := h.store.Save(report.NewRun(kind, res)); err != nil {
		log.WithError(err).Warn("failed to store run")
	}
	log.Debug("adb run finished")

	text := formatRun(kind, res, h.cfg.PreviewBytes())
	if check {
		if err := runner.Check(res); err != nil {
			return errorResult(err.Error() + "\n\n" + text)
		}
	}
	return textResult(text)
}

func formatRun(kind report.Kind, res *runner.Result, preview int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s (%s)\n", res.RunID, kind)
	fmt.Fprintf(&b, "Command: %s %s\n", res.Executable, strings.Join(res.Args, " "))
	fmt.Fprintf(&b, "Status: %s\n", res.Status())
	if res.Failed() {
		fmt.Fprintln(&b, "Result: FAIL")
	} else {
		fmt.Fprintln(&b, "Result: ok")
	}

	writeStream(&b, "stdout", res.Stdout, preview)
	writeStream(&b, "stderr", res.Stderr, preview)

	fmt.Fprintf(&b, "\nFull output: adb_inspect(run_id=%q, stream=\"stdout\"|\"stderr\").\n", res.RunID)
	return b.String()
}

func writeStream(b *strings.Builder, name string, data []byte, preview int) {
	fmt.Fprintln(b)
	switch {
	case len(data) == 0:
		fmt.Fprintf(b, "%s: (empty)\n", name)
	case !utf8.Valid(data):
		fmt.Fprintf(b, "%s: (binary, %d bytes)\n", name, len(data))
	case len(data) > preview:
		fmt.Fprintf(b, "%s (%d bytes, first %d shown):\n", name, len(data), preview)
		b.Write(data[:preview])
		fmt.Fprintln(b, "\n...")
	default:
		fmt.Fprintf(b, "%s:\n", name)
		b.Write(data)
		if data[len(data)-1] != '\n' {
			fmt.Fprintln(b)
		}
	}
}
