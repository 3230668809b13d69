package mcp

import (
	"context"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID  string `json:"run_id" jsonschema:"the run ID from an adb_exec or adb_exec_out result"`
	Stream string `json:"stream,omitempty" jsonschema:"stdout (default) or stderr"`
	Base64 bool   `json:"base64,omitempty" jsonschema:"return the stream base64-encoded; implied for binary output"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	run, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	data, err := run.Stream(params.Stream)
	if err != nil {
		return errorResult(err.Error())
	}

	if params.Base64 || !utf8.Valid(data) {
		return textResult(base64.StdEncoding.EncodeToString(data))
	}
	return textResult(string(data))
}
