package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/norris/jsonrpc"
)

// maxMessageSize bounds a single line of input
const maxMessageSize = 1024 * 1024

// Transport handles the communication between stdin/stdout and the MCP server.
// Requests are handled concurrently; responses are written in completion order.
type Transport struct {
	handler jsonrpc.Handler
	scanner *bufio.Scanner
	bufOut  *bufio.Writer
	writer  *json.Encoder
	logger  *slog.Logger

	mu sync.Mutex
}

// NewStdioTransport creates a new stdio transport
func NewStdioTransport(handler jsonrpc.Handler, in io.Reader, out io.Writer, logger *slog.Logger) *Transport {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxMessageSize)

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bufOut := bufio.NewWriter(out)
	return &Transport{
		handler: handler,
		scanner: scanner,
		bufOut:  bufOut,
		writer:  json.NewEncoder(bufOut),
		logger:  logger,
	}
}

// Run reads newline-delimited messages until EOF or until ctx is done. In
// either case it waits for in-flight requests to finish before returning, so
// nothing is written to out afterwards.
func (t *Transport) Run(ctx context.Context) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for t.scanner.Scan() {
			line := append([]byte(nil), t.scanner.Bytes()...)
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- t.scanner.Err()
	}()

	var g errgroup.Group
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				_ = g.Wait()
				select {
				case err := <-scanErr:
					if err != nil {
						return errors.Wrap(err, "scanner error")
					}
				default:
				}
				return nil
			}
			g.Go(func() error {
				t.handleLine(ctx, line)
				return nil
			})
		}
	}
}

func (t *Transport) handleLine(ctx context.Context, line []byte) {
	request, rpcErr := jsonrpc.Decode(line)
	if rpcErr != nil {
		t.write(jsonrpc.NewResponse(request.ID, nil, rpcErr))
		return
	}

	if response := t.handler.Handle(ctx, request); response != nil {
		t.write(*response)
	}
}

func (t *Transport) write(response jsonrpc.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writer.Encode(response); err != nil {
		t.logger.Error("error encoding response", "error", err)
		return
	}
	if err := t.bufOut.Flush(); err != nil {
		t.logger.Error("error flushing response", "error", err)
	}
}
