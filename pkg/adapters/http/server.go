// Package http exposes a holon engine as the JSON control API editors use
// to inspect, patch and run a workflow file.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/holon"
	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/patch"
	"github.com/aretw0/holon/pkg/ports"
)

// Engine is the part of *holon.Engine the server drives.
type Engine interface {
	Source(ctx context.Context, name string) ([]byte, error)
	SaveSource(ctx context.Context, name string, src []byte) error
	Graph(ctx context.Context, name string) (domain.Graph, error)
	Parse(src []byte) (domain.Graph, error)
	Rename(ctx context.Context, name, oldName, newName string) error
	AddDeclarativeNode(ctx context.Context, name string, n patch.NodeSpec) (string, error)
	AddLink(ctx context.Context, name, workflow string, l patch.Link) error
	PatchDeclarativeNode(ctx context.Context, name, id string, p patch.SpecPatch) error
	PatchCallableBody(ctx context.Context, name, step, replacement string) error
	DeleteNode(ctx context.Context, name, id string) error
	Run(ctx context.Context, name, workflow string, args map[string]any) (*domain.RunResult, error)
	Watch(ctx context.Context) (<-chan string, error)
	Credentials() ports.CredentialStore
}

var _ Engine = (*holon.Engine)(nil)

// Server serves the control API for one engine. File is the source a
// request targets when it names none. Credentials, when set, replaces the
// engine's credential store for the credentials endpoints.
type Server struct {
	Engine      Engine
	File        string
	Streams     *StreamManager
	Credentials ports.CredentialStore
}

type handlerConfig struct {
	metrics     http.Handler
	credentials ports.CredentialStore
}

// HandlerOption customizes NewHandler.
type HandlerOption func(*handlerConfig)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) HandlerOption {
	return func(c *handlerConfig) { c.metrics = h }
}

// WithCredentialStore serves the credentials endpoints from store, e.g. a
// redacted view of the engine's.
func WithCredentialStore(store ports.CredentialStore) HandlerOption {
	return func(c *handlerConfig) { c.credentials = store }
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, file string, opts ...HandlerOption) http.Handler {
	var cfg handlerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		Engine:      engine,
		File:        file,
		Streams:     NewStreamManager(),
		Credentials: cfg.credentials,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/", s.GetHealth)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	r.Get("/events", s.SubscribeEvents)
	if cfg.metrics != nil {
		r.Handle("/metrics", cfg.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/source", s.GetSource)
		r.Put("/source", s.PutSource)
		r.Post("/parse", s.Parse)
		r.Post("/add_spec_node", s.AddSpecNode)
		r.Post("/add_link", s.AddLink)
		r.Post("/patch_node", s.PatchNode)
		r.Post("/patch_spec_node", s.PatchSpecNode)
		r.Post("/rename_node", s.RenameNode)
		r.Post("/delete_node", s.DeleteNode)
		r.Post("/execute_workflow", s.ExecuteWorkflow)
		r.Get("/credentials", s.ListCredentials)
		r.Get("/credentials/{provider}", s.GetCredentials)
		r.Post("/credentials", s.SetCredentials)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Holon API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles GET / and GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	var file any
	if s.File != "" {
		file = s.File
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"file": file,
		"endpoints": map[string]string{
			"source":           "/api/source",
			"parse":            "/api/parse",
			"credentials":      "/api/credentials",
			"add_spec_node":    "/api/add_spec_node",
			"add_link":         "/api/add_link",
			"patch_node":       "/api/patch_node",
			"patch_spec_node":  "/api/patch_spec_node",
			"rename_node":      "/api/rename_node",
			"delete_node":      "/api/delete_node",
			"execute_workflow": "/api/execute_workflow",
			"events":           "/events",
			"openapi":          "/openapi.yaml",
		},
	})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		slog.Error("Failed to load OpenAPI spec", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "holon-http",
		"version":     strings.TrimSpace(holon.Version),
		"api_version": apiVersion,
	})
}

// -- Helpers --

func (s *Server) credentials() ports.CredentialStore {
	if s.Credentials != nil {
		return s.Credentials
	}
	return s.Engine.Credentials()
}

var errNoFile = errors.New(`no source file: pass "file" or start the server with one`)

// target picks the source a request applies to.
func (s *Server) target(file string) (string, error) {
	if file != "" {
		return file, nil
	}
	if s.File == "" {
		return "", errNoFile
	}
	return s.File, nil
}

// decodeBody reads a JSON object into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// writeError maps err to a status: missing sources are 404, everything else
// the caller could fix is 400.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, domain.ErrSourceNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}
