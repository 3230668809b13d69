// Package mcp provides the adbridge MCP server, exposing adb invocations
// as tools.
package mcp

import (
	_ "embed"

	"github.com/deixis/adbridge"
	"github.com/deixis/adbridge/internal/config"
	"github.com/deixis/adbridge/internal/report"
	"github.com/deixis/adbridge/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	cfg    *config.Config
	runner *runner.Runner
	store  report.Store
	log    *logrus.Entry
}

// NewServer creates an MCP server with all adbridge tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, opts ...ServerOption) *mcp.Server {
	so := serverOptions{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, o := range opts {
		o(&so)
	}
	h := &handler{
		cfg:    cfg,
		runner: r,
		store:  store,
		log:    so.log.WithField("component", "mcp"),
	}

	s := mcp.NewServer(&mcp.Implementation{Name: "adbridge", Version: adbridge.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "adb_executable",
		Description: "Report which adb executable is used: the adb on PATH, or the bundled prebuilt on Windows hosts without one.",
	}, h.executableHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "adb_exec",
		Description: `Run adb with the given arguments and return its exit status and output.

Arguments are passed verbatim, without a shell. Output is previewed; use adb_inspect
with the returned run_id for the full streams.`,
	}, h.execHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "adb_exec_out",
		Description: `Run "adb exec-out" with the given arguments, capturing raw device output.

Binary output is reported by size; fetch it base64-encoded via adb_inspect.`,
	}, h.execOutHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "adb_inspect",
		Description: "Return the full stdout or stderr of a previous adb_exec or adb_exec_out run.",
	}, h.inspectHandler)

	return s
}

// ServerOption configures the adbridge MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	log *logrus.Entry
}

// WithLogger sets the logger used for tool invocations.
func WithLogger(l *logrus.Entry) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
