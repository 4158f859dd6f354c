package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/loopwork-ai/norris/jsonrpc"
)

// Server represents an MCP server that processes JSON-RPC requests
type Server struct {
	info         Implementation
	instructions string
	registry     *Registry
	client       JokeClient
	logger       *slog.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server) error

// WithJokeClient sets the client the tools call
func WithJokeClient(client JokeClient) ServerOption {
	return func(s *Server) error {
		if client == nil {
			return errors.New("joke client cannot be nil")
		}
		s.client = client
		return nil
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithServerInfo sets the server name and version reported during initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) error {
		s.info = Implementation{Name: name, Version: version}
		return nil
	}
}

// WithInstructions sets the instructions returned during initialize
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) error {
		s.instructions = instructions
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		info:   Implementation{Name: "norris", Version: "dev"},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.client == nil {
		return nil, errors.New("a joke client is required")
	}

	registry, err := NewRegistry(s.client)
	if err != nil {
		return nil, errors.Wrap(err, "error creating tool registry")
	}
	s.registry = registry

	return s, nil
}

// Registry returns the server's tool registry
func (s *Server) Registry() *Registry {
	return s.registry
}

var _ jsonrpc.Handler = (*Server)(nil)

// Handle processes a single JSON-RPC message. Notifications yield nil.
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) *jsonrpc.Response {
	s.logger.Debug("handling request", "method", request.Method, "id", request.ID)

	if request.IsNotification() {
		s.handleNotification(request)
		return nil
	}

	var response jsonrpc.Response
	switch request.Method {
	case MethodInitialize:
		response = s.handleInitialize(request)
	case MethodPing:
		response = jsonrpc.NewResponse(request.ID, PingResponse{}, nil)
	case MethodToolsList:
		response = s.handleToolsList(request)
	case MethodToolsCall:
		response = s.handleToolsCall(ctx, request)
	default:
		response = jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}

	if response.Error != nil {
		s.logger.Debug("request failed", "method", request.Method, "id", request.ID, "code", response.Error.Code, "message", response.Error.Message)
	}
	return &response
}

func (s *Server) handleNotification(request jsonrpc.Request) {
	switch request.Method {
	case MethodInitialized:
		s.logger.Info("client initialized")
	default:
		s.logger.Debug("ignoring notification", "method", request.Method)
	}
}

func (s *Server) handleInitialize(request jsonrpc.Request) jsonrpc.Response {
	var params InitializeRequest
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
		}
	}

	version := Version
	if slices.Contains(SupportedVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	s.logger.Info("initializing session",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"protocolVersion", version)

	return jsonrpc.NewResponse(request.ID, InitializeResponse{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools: s.registry.Capabilities(),
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}, nil)
}

func (s *Server) handleToolsList(request jsonrpc.Request) jsonrpc.Response {
	var params ToolsListRequest
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
		}
	}
	if params.Cursor != "" {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.Errorf(jsonrpc.ErrInvalidParams, "Invalid cursor: %s", params.Cursor))
	}

	return jsonrpc.NewResponse(request.ID, ToolsListResponse{Tools: s.registry.Tools()}, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params ToolCallRequest
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
	}
	if params.Name == "" {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, "tool name is required"))
	}

	result, err := s.registry.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.Errorf(jsonrpc.ErrInvalidParams, "Unknown tool: %s", params.Name))
		}
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInternal, err))
	}

	s.logger.Debug("tool call finished", "tool", params.Name, "isError", result.IsError)
	return jsonrpc.NewResponse(request.ID, result, nil)
}
