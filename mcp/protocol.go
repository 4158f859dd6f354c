package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the Model Context Protocol version offered when the client
// requests one we do not support
const Version = "2024-11-05"

// SupportedVersions lists protocol versions the server can speak
var SupportedVersions = []string{Version, "2025-03-26", "2025-06-18"}

// Method names
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Content is a typed unit of response payload. Only text is produced.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextContent creates a text content block
func NewTextContent(text string) Content {
	return Content{
		Type: "text",
		Text: text,
	}
}

// Initialize
type (
	// ToolCapability is a discovery entry in the capability manifest
	ToolCapability struct {
		Description string `json:"description"`
	}

	// ServerCapabilities represents the server's supported capabilities.
	// Tools maps each tool name to its discovery entry.
	ServerCapabilities struct {
		Tools map[string]ToolCapability `json:"tools,omitempty"`
	}

	// Implementation names a client or server implementation
	Implementation struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	// InitializeRequest represents a request to initialize the server
	InitializeRequest struct {
		ProtocolVersion string                 `json:"protocolVersion"`
		Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
		ClientInfo      Implementation         `json:"clientInfo"`
	}

	// InitializeResponse represents the server's response to an initialize request
	InitializeResponse struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      Implementation     `json:"serverInfo"`
		Instructions    string             `json:"instructions,omitempty"`
	}
)

// Tools
type (
	// Tool describes a callable tool in the tools/list response
	Tool struct {
		Name        string             `json:"name"`
		Description string             `json:"description,omitempty"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
	}

	// ToolsListRequest represents a request to list available tools.
	// The whole list fits in one page, so only an empty cursor is valid.
	ToolsListRequest struct {
		Cursor string `json:"cursor,omitempty"`
	}

	// ToolsListResponse represents the response for the tools/list method
	ToolsListResponse struct {
		Tools []Tool `json:"tools"`
	}

	// ToolCallRequest names a tool and carries its raw arguments
	ToolCallRequest struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	// ToolCallResponse is the envelope returned by every tool handler
	ToolCallResponse struct {
		Content []Content `json:"content"`
		IsError bool      `json:"isError,omitempty"`
	}
)

// Ping
type (
	// PingResponse represents the response for ping
	PingResponse struct{}
)

// NewToolResult wraps text in a successful envelope
func NewToolResult(text string) *ToolCallResponse {
	return &ToolCallResponse{
		Content: []Content{NewTextContent(text)},
	}
}

// NewToolError wraps text in a failure envelope
func NewToolError(text string) *ToolCallResponse {
	return &ToolCallResponse{
		Content: []Content{NewTextContent(text)},
		IsError: true,
	}
}
