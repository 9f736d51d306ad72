// Package rpc serves the patcher and extractor over JSON lines on a pair of
// streams, the transport editor extensions use when they spawn holon as a
// child process.
//
// Every request carries the source text it applies to, so the server keeps
// no state between requests:
//
//	{"id": 1, "method": "rename_node", "params": {"source": "...", "old_name": "a", "new_name": "b"}}
//	{"id": 1, "result": {"source": "..."}}
package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aretw0/holon/pkg/registry"
)

const (
	// MethodShutdown ends Serve after its response is written.
	MethodShutdown = "shutdown"

	// maxLine bounds a single request; sources travel inline.
	maxLine = 16 << 20
)

// InvalidID is the id of responses to requests whose own id is unusable.
const InvalidID = -1

// Request is one line read from the client.
type Request struct {
	ID     int            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Error is the error member of a failed response.
type Error struct {
	Message string `json:"message"`
}

// Response is one line written back.
type Response struct {
	ID     int    `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Server dispatches requests to method handlers.
type Server struct {
	registry *registry.Registry
	logger   *slog.Logger
	methods  map[string]Method

	mu sync.Mutex // serializes writes
}

// Method handles the params of one request.
type Method func(ctx context.Context, params map[string]any) (any, error)

// Option configures a Server.
type Option func(*Server)

// WithRegistry sets the registry used to annotate ports and lint types.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithLogger sets the logger. Logs never go to the response stream.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server with the standard method set.
func NewServer(opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = registry.NewWithBuiltins()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.methods = s.standardMethods()
	return s
}

// Handle registers or replaces a method.
func (s *Server) Handle(name string, m Method) {
	s.methods[name] = m
}

// Serve reads requests from r until EOF, a shutdown request or ctx ends.
// Blank lines and lines that are not JSON are skipped.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			s.logger.Debug("skipping non-JSON line", "len", len(line))
			continue
		}

		resp := s.Dispatch(ctx, line)
		if err := s.write(enc, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if resp.Error == nil && resp.Result == MethodShutdown {
			s.logger.Info("rpc shutdown requested", "id", resp.ID)
			return nil
		}
	}
	return scanner.Err()
}

func (s *Server) write(enc *json.Encoder, resp Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return enc.Encode(resp)
}

// Dispatch answers one raw JSON request.
func (s *Server) Dispatch(ctx context.Context, raw []byte) Response {
	req, err := parseRequest(raw)
	if err != nil {
		return failure(InvalidID, err)
	}

	m, ok := s.methods[req.Method]
	if !ok {
		return failure(req.ID, fmt.Errorf("Unknown method: %s", req.Method))
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	result, err := m(ctx, req.Params)
	if err != nil {
		s.logger.Debug("rpc method failed", "id", req.ID, "method", req.Method, "error", err)
		return failure(req.ID, err)
	}
	return Response{ID: req.ID, Result: result}
}

func failure(id int, err error) Response {
	return Response{ID: id, Error: &Error{Message: err.Error()}}
}

var (
	errInvalidRequest = errors.New("Invalid request")
	errInvalidFields  = errors.New("Invalid request fields")
)

// parseRequest accepts only objects with an integer id and a string method.
func parseRequest(raw []byte) (Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Request{}, errInvalidRequest
	}

	var req Request
	id, err := strconv.Atoi(string(bytes.TrimSpace(fields["id"])))
	if err != nil {
		return Request{}, errInvalidFields
	}
	req.ID = id
	method, ok := fields["method"]
	if !ok || string(method) == "null" || json.Unmarshal(method, &req.Method) != nil {
		return Request{}, errInvalidFields
	}
	if p, ok := fields["params"]; ok && string(p) != "null" {
		if err := json.Unmarshal(p, &req.Params); err != nil {
			return Request{}, errors.New("params must be an object")
		}
	}
	return req, nil
}
