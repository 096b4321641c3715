// Package rpcio is the assistant-facing framed I/O endpoint (spec.md §2
// component A, §4.A): newline-delimited JSON-RPC 2.0 on stdin/stdout. The
// bridge is the server here — it answers initialize/tools/list/tools/call
// requests and never originates one — inverting the reader/writer-goroutine
// shape of the teacher's codexrpc.Client, which drives a child process as
// an RPC *client*.
package rpcio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/codebridgehq/codebridge/internal/rpcerrors"
)

// Request is an inbound JSON-RPC 2.0 request or notification. Notifications
// carry no id.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is an outbound JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *rpcerrors.Error `json:"error,omitempty"`
}

// Handler answers one request and returns either a result or an error.
// Exactly one of the two return values is used by Server when writing the
// response.
type Handler func(ctx context.Context, req Request) (json.RawMessage, *rpcerrors.Error)

// Server reads line-delimited JSON-RPC requests from r and writes responses
// to w. stdout is a single writer: one background goroutine drains a
// fan-in channel of outbound lines, so tool results and the control plane's
// own replies never interleave mid-line (spec.md §5 "assistant stdout is a
// single writer").
type Server struct {
	r   io.Reader
	w   io.Writer
	log zerolog.Logger

	routeMu sync.RWMutex
	routes  map[string]Handler

	inFlight sync.WaitGroup
	writeCh  chan []byte
	done     chan struct{}
}

func New(r io.Reader, w io.Writer, log zerolog.Logger) *Server {
	s := &Server{
		r:       r,
		w:       w,
		log:     log,
		routes:  make(map[string]Handler),
		writeCh: make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	return s
}

// Handle registers the handler for method. Call before Run.
func (s *Server) Handle(method string, h Handler) {
	s.routeMu.Lock()
	s.routes[method] = h
	s.routeMu.Unlock()
}

// Run drives the read loop until ctx is cancelled or the input stream ends.
// It starts its own write-loop goroutine and blocks until both loops exit.
func (s *Server) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(ctx)
	}()

	err := s.readLoop(ctx)
	close(s.done)
	wg.Wait()
	return err
}

func (s *Server) writeLoop(ctx context.Context) {
	for {
		select {
		case line, ok := <-s.writeCh:
			if !ok {
				return
			}
			if _, err := s.w.Write(line); err != nil {
				s.log.Error().Err(err).Msg("rpcio: write failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop dispatches each line to its own goroutine so a slow or
// long-pending request (e.g. a browser forward waiting out its deadline)
// never blocks the reader from draining the assistant's next line — spec.md
// §5's "one logical reader for the assistant channel" describes a single
// reader, not a single in-flight request, and §8 requires replies to arrive
// in satisfaction order rather than request order, which is only possible
// if more than one request can be outstanding at once.
func (s *Server) readLoop(ctx context.Context) error {
	sc := bufio.NewScanner(s.r)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 16*1024*1024)

	for sc.Scan() {
		if ctx.Err() != nil {
			s.inFlight.Wait()
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s.inFlight.Add(1)
		go func(line []byte) {
			defer s.inFlight.Done()
			s.handleLine(ctx, line)
		}([]byte(line))
	}
	s.inFlight.Wait()
	close(s.writeCh)
	if err := sc.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		var probe struct {
			ID json.RawMessage `json:"id"`
		}
		if jsonErr := json.Unmarshal(line, &probe); jsonErr == nil && len(probe.ID) > 0 {
			s.writeError(probe.ID, rpcerrors.ParseError(err.Error()))
		}
		s.log.Warn().Err(err).Msg("rpcio: dropped unparsable line")
		return
	}

	method := strings.TrimSpace(req.Method)
	s.routeMu.RLock()
	handler, ok := s.routes[method]
	s.routeMu.RUnlock()

	if !ok {
		if len(req.ID) > 0 {
			s.writeError(req.ID, rpcerrors.UnknownMethod(method))
		}
		return
	}

	result, rpcErr := handler(ctx, req)
	if len(req.ID) == 0 {
		// Notification: no response regardless of handler outcome.
		return
	}
	if rpcErr != nil {
		s.writeError(req.ID, rpcErr)
		return
	}
	s.writeResult(req.ID, result)
}

func (s *Server) writeResult(id json.RawMessage, result json.RawMessage) {
	s.enqueue(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(id json.RawMessage, rpcErr *rpcerrors.Error) {
	s.enqueue(Response{JSONRPC: "2.0", ID: id, Error: rpcErr})
}

func (s *Server) enqueue(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("rpcio: failed to marshal response")
		return
	}
	data = append(data, '\n')
	select {
	case s.writeCh <- data:
	case <-s.done:
	}
}

// ErrClosed is returned by callers that attempt to use a Server after Run
// has returned.
var ErrClosed = errors.New("rpcio: server closed")
