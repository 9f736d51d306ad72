// Package mcp exposes a holon engine to language-model agents as MCP tools:
// inspect a workflow file, patch it and run it.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/internal/dto"
	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/extract"
	"github.com/aretw0/holon/pkg/patch"
)

// SourceURIPrefix prefixes the resource URI of every stored source.
const SourceURIPrefix = "holon://source/"

// Engine defines what the MCP server needs from holon.
type Engine interface {
	Sources(ctx context.Context) ([]string, error)
	Source(ctx context.Context, name string) ([]byte, error)
	Graph(ctx context.Context, name string) (domain.Graph, error)
	Lint(ctx context.Context, name string) (domain.Graph, []extract.Issue, error)
	Rename(ctx context.Context, name, oldName, newName string) error
	AddDeclarativeNode(ctx context.Context, name string, n patch.NodeSpec) (string, error)
	AddLink(ctx context.Context, name, workflow string, l patch.Link) error
	PatchDeclarativeNode(ctx context.Context, name, id string, p patch.SpecPatch) error
	PatchCallableBody(ctx context.Context, name, step, replacement string) error
	DeleteNode(ctx context.Context, name, id string) error
	Run(ctx context.Context, name, workflow string, args map[string]any) (*domain.RunResult, error)
}

var _ Engine = (*holon.Engine)(nil)

// RunResponse is the structured result of the run_workflow tool.
type RunResponse struct {
	Output any                `json:"output" jsonschema_description:"Workflow output; absent when the run failed"`
	Result *domain.RunResult `json:"result,omitempty" jsonschema_description:"Execution order, trace and final phase"`
	Error  string             `json:"error,omitempty" jsonschema_description:"Why the run failed"`
}

// Server wraps a holon Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	file      string
	mcpServer *server.MCPServer
	tools     []server.ServerTool
}

// NewServer creates a new MCP Server. file is the source tools target when
// the caller names none; it may be empty.
func NewServer(engine Engine, file string) *Server {
	s := &Server{
		engine: engine,
		file:   file,
		mcpServer: server.NewMCPServer("holon-mcp", strings.TrimSpace(holon.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func fileArg() mcp.ToolOption {
	return mcp.WithString("file", mcp.Description("Stored source name, e.g. main.go. Defaults to the file the server was started with."))
}

func (s *Server) registerTools() {
	add := func(tool mcp.Tool, handler server.ToolHandlerFunc) {
		s.tools = append(s.tools, server.ServerTool{Tool: tool, Handler: handler})
	}

	add(mcp.NewTool("list_sources",
		mcp.WithDescription("List the stored workflow source files."),
	), s.handleListSources)

	add(mcp.NewTool("get_graph",
		mcp.WithDescription("Extract the node/edge graph of a workflow file."),
		fileArg(),
	), s.handleGetGraph)

	add(mcp.NewTool("lint",
		mcp.WithDescription("Report skipped declarations, dangling links, unknown types and unused steps."),
		fileArg(),
	), s.handleLint)

	add(mcp.NewTool("rename_node",
		mcp.WithDescription("Rename a step function and the workflow calls to it."),
		fileArg(),
		mcp.WithString("old_name", mcp.Required(), mcp.Description("Current function name")),
		mcp.WithString("new_name", mcp.Required(), mcp.Description("New function name")),
	), editTool(s, func(ctx context.Context, name string, r *dto.RenameNodeRequest) (string, error) {
		return "", s.engine.Rename(ctx, name, r.OldName, r.NewName)
	}))

	add(mcp.NewTool("add_declarative_node",
		mcp.WithDescription("Insert a declarative node described by a type id and literal props."),
		fileArg(),
		mcp.WithString("node_type", mcp.Required(), mcp.Description("Registered type id, e.g. llm.model")),
		mcp.WithString("node_id", mcp.Description("Node id; generated when omitted")),
		mcp.WithString("label", mcp.Description("Display label")),
		mcp.WithObject("props", mcp.Description("Literal properties")),
	), editTool(s, func(ctx context.Context, name string, r *dto.AddSpecNodeRequest) (string, error) {
		return s.engine.AddDeclarativeNode(ctx, name, r.NodeSpec())
	}))

	add(mcp.NewTool("add_link",
		mcp.WithDescription("Wire an output port to an input port inside a workflow."),
		fileArg(),
		mcp.WithString("workflow_name", mcp.Required()),
		mcp.WithString("source_node_id", mcp.Required()),
		mcp.WithString("source_port", mcp.Required()),
		mcp.WithString("target_node_id", mcp.Required()),
		mcp.WithString("target_port", mcp.Required()),
	), editTool(s, func(ctx context.Context, name string, r *dto.AddLinkRequest) (string, error) {
		return "", s.engine.AddLink(ctx, name, r.WorkflowName, r.Link())
	}))

	add(mcp.NewTool("patch_declarative_node",
		mcp.WithDescription("Rewrite the fields of a declarative node whose set_* flag is true."),
		fileArg(),
		mcp.WithString("node_id", mcp.Required()),
		mcp.WithString("node_type"),
		mcp.WithString("label"),
		mcp.WithObject("props"),
		mcp.WithBoolean("set_node_type"),
		mcp.WithBoolean("set_label"),
		mcp.WithBoolean("set_props"),
	), editTool(s, func(ctx context.Context, name string, r *dto.PatchSpecNodeRequest) (string, error) {
		return "", s.engine.PatchDeclarativeNode(ctx, name, r.NodeID, r.SpecPatch())
	}))

	add(mcp.NewTool("patch_callable_body",
		mcp.WithDescription("Replace the whole declaration of a step function with new Go code."),
		fileArg(),
		mcp.WithString("node_name", mcp.Required()),
		mcp.WithString("new_function_code", mcp.Required(), mcp.Description("A single Go function declaration")),
	), editTool(s, func(ctx context.Context, name string, r *dto.PatchNodeRequest) (string, error) {
		return "", s.engine.PatchCallableBody(ctx, name, r.NodeName, r.NewFunctionCode)
	}))

	add(mcp.NewTool("delete_node",
		mcp.WithDescription("Remove a step, workflow or declarative node by id."),
		fileArg(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("e.g. node:add, workflow:main, spec:llm")),
	), editTool(s, func(ctx context.Context, name string, r *dto.DeleteNodeRequest) (string, error) {
		return "", s.engine.DeleteNode(ctx, name, r.NodeID)
	}))

	add(mcp.NewTool("run_workflow",
		mcp.WithDescription("Execute a workflow and return its output with the execution trace."),
		fileArg(),
		mcp.WithString("workflow_name", mcp.Description("Workflow to run (default: main)")),
		mcp.WithObject("args", mcp.Description("Workflow parameters by name")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTools(s.tools...)
}

func (s *Server) target(file string) (string, error) {
	if file != "" {
		return file, nil
	}
	if s.file == "" {
		return "", errors.New(`no source file: pass "file"`)
	}
	return s.file, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleListSources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.engine.Sources(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return jsonResult(names)
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := s.target(request.GetString("file", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.engine.Graph(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extract failed: %v", err)), nil
	}
	return jsonResult(g)
}

func (s *Server) handleLint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := s.target(request.GetString("file", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, issues, err := s.engine.Lint(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lint failed: %v", err)), nil
	}
	if issues == nil {
		issues = []extract.Issue{}
	}
	return jsonResult(issues)
}

type validator interface {
	Validate() error
}

// editTool builds a tool handler that decodes the arguments into a fresh
// request, applies op to the target source and answers with the new source
// text. op may return the id of a node it created.
func editTool[T any, PT interface {
	*T
	validator
}](s *Server, op func(ctx context.Context, name string, req PT) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := PT(new(T))
		if err := dto.Decode(request.GetArguments(), req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := req.Validate(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		name, err := s.target(request.GetString("file", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		id, err := op(ctx, name, req)
		if err != nil {
			slog.Warn("MCP edit rejected", "tool", request.Params.Name, "file", name, "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", request.Params.Name, err)), nil
		}
		src, err := s.engine.Source(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reload failed: %v", err)), nil
		}
		out := map[string]string{"source": string(src)}
		if id != "" {
			out["node_id"] = id
		}
		return jsonResult(out)
	}
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	var req dto.ExecuteRequest
	if err := dto.Decode(args, &req); err != nil {
		return RunResponse{}, err
	}
	name, err := s.target(req.File)
	if err != nil {
		return RunResponse{}, err
	}

	res, err := s.engine.Run(ctx, name, req.Workflow(), req.Args)
	if err != nil {
		if res == nil {
			return RunResponse{}, fmt.Errorf("run failed: %w", err)
		}
		return RunResponse{Result: res, Error: err.Error()}, nil
	}
	return RunResponse{Output: res.Output, Result: res}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(SourceURIPrefix+"{name}", "Workflow source",
		mcp.WithTemplateDescription("Go source text of a stored workflow file"),
		mcp.WithTemplateMIMEType("text/x-go"),
	), s.readSource)
}

func (s *Server) readSource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := strings.TrimPrefix(request.Params.URI, SourceURIPrefix)
	src, err := s.engine.Source(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/x-go",
			Text:     string(src),
		},
	}, nil
}
