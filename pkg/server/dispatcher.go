// Package server dispatches MCP JSON-RPC messages and serves them over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santoshkal/mcp-server-http-time/pkg/guard"
	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
	"github.com/santoshkal/mcp-server-http-time/pkg/reg"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
	"github.com/santoshkal/mcp-server-http-time/pkg/utils"
)

var logger = utils.Logger

// MCP method names.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"

	notificationPrefix = "notifications/"
)

// Server routes JSON-RPC messages to the registered tools.
// It holds no per-request state and is safe for concurrent use.
type Server struct {
	registry     *reg.Registry
	info         mcp.ServerInfo
	instructions string
}

// NewServer creates a dispatcher over registry.
func NewServer(registry *reg.Registry, info mcp.ServerInfo, instructions string) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if info.Name == "" {
		return nil, fmt.Errorf("server name cannot be empty")
	}
	return &Server{registry: registry, info: info, instructions: instructions}, nil
}

// Registry returns the tools served by s.
func (s *Server) Registry() *reg.Registry {
	return s.registry
}

// HandleMessage parses one JSON-RPC message and dispatches it.
// It returns nil when the message is a notification and no response must be sent.
func (s *Server) HandleMessage(ctx context.Context, body []byte) *mcp.RPCResponse {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return mcp.NewErrorResponse(nil, mcp.ErrorCodeParseError, "Parse error")
	}
	if body[0] != '{' {
		return mcp.NewErrorResponse(nil, mcp.ErrorCodeInvalidRequest, "Invalid Request: expected a single JSON object")
	}

	var req mcp.RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return mcp.NewErrorResponse(recoverID(req.ID), mcp.ErrorCodeInvalidRequest, fmt.Sprintf("Invalid Request: %v", err))
	}
	if !mcp.ValidID(req.ID) {
		return mcp.NewErrorResponse(nil, mcp.ErrorCodeInvalidRequest, "Invalid Request: id must be a string, number or null")
	}
	if req.Version != mcp.JSONRPCVersion {
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidRequest, `Invalid Request: jsonrpc must be "2.0"`)
	}
	if req.Method == "" {
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidRequest, "Invalid Request: method is required")
	}

	return s.Dispatch(ctx, &req)
}

// Dispatch routes a well-formed request by method name.
func (s *Server) Dispatch(ctx context.Context, req *mcp.RPCRequest) *mcp.RPCResponse {
	logger.Debugf("Dispatching method: %s", req.Method)

	switch req.Method {
	case MethodInitialize:
		return s.handleInitialize(req)
	case MethodToolsList:
		return s.handleToolsList(req)
	case MethodToolsCall:
		return s.handleToolsCall(ctx, req)
	case MethodPing:
		return mcp.NewResult(req.ID, map[string]interface{}{})
	case MethodInitialized:
		return nil
	}
	if strings.HasPrefix(req.Method, notificationPrefix) {
		return nil
	}
	return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
}

func (s *Server) handleInitialize(req *mcp.RPCRequest) *mcp.RPCResponse {
	var params mcp.InitializeParams
	if isPresent(req.Params) {
		// A malformed handshake degrades to the default version rather than failing.
		if err := json.Unmarshal(req.Params, &params); err != nil {
			logger.Warnf("Ignoring malformed initialize params: %v", err)
			params = mcp.InitializeParams{}
		}
	}
	version := guard.NegotiateProtocolVersion(params.ProtocolVersion)
	if params.ClientInfo != nil {
		logger.Infof("Initialize from %s %s, protocol %s", params.ClientInfo.Name, params.ClientInfo.Version, version)
	}

	return mcp.NewResult(req.ID, mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	})
}

func (s *Server) handleToolsList(req *mcp.RPCRequest) *mcp.RPCResponse {
	tools := s.registry.List()
	out := make([]mcp.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Describe())
	}
	return mcp.NewResult(req.ID, mcp.ToolsListResult{Tools: out})
}

func (s *Server) handleToolsCall(ctx context.Context, req *mcp.RPCRequest) *mcp.RPCResponse {
	if !isPresent(req.Params) {
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidParams, "Invalid params: name is required")
	}
	var params mcp.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidParams, fmt.Sprintf("Invalid params: %v", err))
	}
	if params.Name == nil || *params.Name == "" {
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidParams, "Invalid params: name is required")
	}
	name := *params.Name

	tool, ok := s.registry.Lookup(name)
	if !ok {
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeMethodNotFound, fmt.Sprintf("Unknown tool: %s", name))
	}

	var raw map[string]interface{}
	if isPresent(params.Arguments) {
		if err := json.Unmarshal(params.Arguments, &raw); err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidParams, "Invalid params: arguments must be an object")
		}
	}

	args, err := tool.Schema.Validate(raw)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidParams, verr.Error())
		}
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInvalidParams, fmt.Sprintf("Invalid arguments: %v", err))
	}

	result, err := Execute(ctx, tool, args)
	if err != nil {
		logger.Errorf("tools/call %s failed: %v", name, err)
		return mcp.NewErrorResponse(req.ID, mcp.ErrorCodeInternalError, fmt.Sprintf("Tool execution error: %v", err))
	}
	return mcp.NewResult(req.ID, result)
}

// isPresent reports whether a raw member was sent with a non-null value.
func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// recoverID keeps a usable id from a request whose other members failed to decode.
func recoverID(id json.RawMessage) json.RawMessage {
	if mcp.ValidID(id) {
		return id
	}
	return nil
}
