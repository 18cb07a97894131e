package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
	"github.com/santoshkal/mcp-server-http-time/pkg/plugins"
	"github.com/santoshkal/mcp-server-http-time/pkg/reg"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
)

// ErrHandlerPanic is returned by Execute when a tool handler panics.
var ErrHandlerPanic = errors.New("tool handler panicked")

// Execute runs tool with already validated arguments.
//
// An error returned by the handler is a domain failure and comes back as a result with
// IsError set. Only a panic or an unencodable return value yields a non-nil error.
func Execute(ctx context.Context, tool reg.Tool, args schema.Args) (result mcp.ToolResult, err error) {
	logger.Debugf("Entering Execute for tool: %s", tool.Name)
	defer logger.Debug("Exiting Execute")

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Tool %s panicked: %v", tool.Name, r)
			result, err = mcp.ToolResult{}, fmt.Errorf("%w: %s: %v", ErrHandlerPanic, tool.Name, r)
		}
	}()

	out, herr := tool.Handler(ctx, args)
	if herr != nil {
		logger.Debugf("Tool %s returned error: %v", tool.Name, herr)
		return mcp.ErrorResult(fmt.Sprintf("Tool execution error: %v", herr)), nil
	}
	return toToolResult(out)
}

// toToolResult converts a handler return value into a tool result.
func toToolResult(v interface{}) (mcp.ToolResult, error) {
	switch r := v.(type) {
	case mcp.ToolResult:
		return r, nil
	case *mcp.ToolResult:
		if r != nil {
			return *r, nil
		}
		return mcp.TextResult(""), nil
	case string:
		return mcp.TextResult(r), nil
	case plugins.Text:
		return mcp.TextResult(string(r)), nil
	case nil:
		return mcp.TextResult(""), nil
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.ToolResult{}, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.TextResult(string(b)), nil
}
