// ./pkg/mcp/types.go
package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const JSONRPCVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
	ErrorCodeServerError    = -32000
)

// Protocol versions understood by the server, newest first.
const (
	ProtocolVersionLatest   = "2025-06-18"
	ProtocolVersion20250326 = "2025-03-26"
	ProtocolVersionFallback = "2024-11-05"
)

// SupportedProtocolVersions lists every protocol version the server can speak.
var SupportedProtocolVersions = []string{
	ProtocolVersionLatest,
	ProtocolVersion20250326,
	ProtocolVersionFallback,
}

// RPCRequest defines the JSON-RPC request structure.
type RPCRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// HasID reports whether the request carried an id member (null included).
func (r *RPCRequest) HasID() bool {
	return len(r.ID) > 0
}

// RPCResponse defines the JSON-RPC response structure. A nil ID is encoded as null.
type RPCResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError defines an error in JSON-RPC responses.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewError creates a new RPCError with the given code and message.
func NewError(code int, msg string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: msg,
	}
}

// String returns the string representation of the RPCError.
func (e *RPCError) String() string {
	return fmt.Sprintf("RPC Error [Code: %d]: %s", e.Code, e.Message)
}

// NewResult builds a success response for id.
func NewResult(id json.RawMessage, result interface{}) *RPCResponse {
	return &RPCResponse{Version: JSONRPCVersion, ID: id, Result: result}
}

// NewErrorResponse builds an error response for id.
func NewErrorResponse(id json.RawMessage, code int, msg string) *RPCResponse {
	return &RPCResponse{Version: JSONRPCVersion, ID: id, Error: NewError(code, msg)}
}

// ValidID reports whether raw is an acceptable JSON-RPC id: a string, an integer or
// null. Numbers with a fraction or exponent are rejected.
func ValidID(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}
	switch raw[0] {
	case '"', 'n':
		return true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return !bytes.ContainsAny(raw, ".eE")
	}
	return false
}

// ServerInfo identifies this server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams are the parameters of the initialize method.
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      *ServerInfo     `json:"clientInfo,omitempty"`
}

// InitializeResult is the result of the initialize method.
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
	Instructions    string                 `json:"instructions,omitempty"`
}

// Tool describes a registered tool in tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolsListResult is the result of tools/list.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams are the parameters of tools/call.
type ToolCallParams struct {
	Name      *string         `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Content is a single item of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the payload of a successful tools/call. IsError marks a domain failure
// reported by the tool itself, as opposed to a protocol error.
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// TextResult returns a single-item text result.
func TextResult(text string) ToolResult {
	return ToolResult{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResult returns a single-item text result flagged as a tool error.
func ErrorResult(text string) ToolResult {
	return ToolResult{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}
