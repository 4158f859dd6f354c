package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/norris/internal/session"
	"github.com/loopwork-ai/norris/jsonrpc"
)

// Endpoint paths served by HTTPTransport
const (
	PathSSE       = "/sse"
	PathMessage   = "/message"
	PathStateless = "/mcp"
)

// DefaultKeepAlive is the interval between SSE comment pings
const DefaultKeepAlive = 30 * time.Second

// HTTPTransport serves MCP over HTTP. A client opens an event stream on
// PathSSE, is told a per-session message URL, and POSTs requests there;
// responses arrive as "message" events on the stream. Sessions are held in
// a session.Broker so a POST may land on any instance. PathStateless
// answers a single request in the HTTP response itself.
type HTTPTransport struct {
	handler   jsonrpc.Handler
	broker    session.Broker
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewHTTPTransport creates an HTTP transport. A zero keepAlive selects
// DefaultKeepAlive.
func NewHTTPTransport(handler jsonrpc.Handler, broker session.Broker, logger *slog.Logger, keepAlive time.Duration) *HTTPTransport {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	return &HTTPTransport{
		handler:   handler,
		broker:    broker,
		logger:    logger,
		keepAlive: keepAlive,
	}
}

// Handler returns the routes of the transport
func (t *HTTPTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathSSE, t.handleSSE)
	mux.HandleFunc("POST "+PathMessage, t.handleMessage)
	mux.HandleFunc("POST "+PathStateless, t.handleStateless)
	return mux
}

func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	sessionID := uuid.NewString()
	sub, err := t.broker.Open(ctx, sessionID)
	if err != nil {
		t.logger.Error("error opening session", "session", sessionID, "error", err)
		http.Error(w, "Failed to open session", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			t.logger.Warn("error closing session", "session", sessionID, "error", err)
		}
	}()

	logger := t.logger.With("session", sessionID)
	logger.Info("session opened", "remote", r.RemoteAddr)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	stream := &eventStream{w: w, flusher: flusher}
	if err := stream.send("endpoint", fmt.Sprintf("%s?sessionId=%s", PathMessage, sessionID)); err != nil {
		logger.Warn("error sending endpoint event", "error", err)
		return
	}

	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()

	// In-flight requests must finish before the handler returns, since the
	// ResponseWriter is invalid afterwards.
	var g errgroup.Group
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			logger.Info("session closed by client")
			return
		case <-sub.Done():
			logger.Info("session ended")
			return
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				logger.Debug("keep-alive failed", "error", err)
				return
			}
		case msg := <-sub.Messages():
			g.Go(func() error {
				t.dispatch(ctx, logger, stream, msg)
				return nil
			})
		}
	}
}

func (t *HTTPTransport) dispatch(ctx context.Context, logger *slog.Logger, stream *eventStream, msg []byte) {
	request, rpcErr := jsonrpc.Decode(msg)
	var response *jsonrpc.Response
	if rpcErr != nil {
		resp := jsonrpc.NewResponse(request.ID, nil, rpcErr)
		response = &resp
	} else {
		response = t.handler.Handle(ctx, request)
	}
	if response == nil {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		logger.Error("error encoding response", "error", err)
		return
	}
	if err := stream.send("message", string(data)); err != nil {
		logger.Debug("error sending response", "error", err)
	}
}

func (t *HTTPTransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "Missing sessionId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "Invalid JSON-RPC message", http.StatusBadRequest)
		return
	}

	if err := t.broker.Publish(r.Context(), sessionID, body); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		t.logger.Error("error publishing message", "session", sessionID, "error", err)
		http.Error(w, "Failed to deliver message", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, "Accepted")
}

func (t *HTTPTransport) handleStateless(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	request, rpcErr := jsonrpc.Decode(body)
	if rpcErr != nil {
		writeJSON(w, http.StatusBadRequest, jsonrpc.NewResponse(request.ID, nil, rpcErr))
		return
	}

	response := t.handler.Handle(r.Context(), request)
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// eventStream serializes writes of server-sent events
type eventStream struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func (s *eventStream) send(event, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
