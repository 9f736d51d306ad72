package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/holon/internal/dto"
	"github.com/aretw0/holon/pkg/domain"
)

// GetSource handles GET /api/source.
func (s *Server) GetSource(w http.ResponseWriter, r *http.Request) {
	name, err := s.target(r.URL.Query().Get("file"))
	if err != nil {
		writeError(w, err)
		return
	}
	src, err := s.Engine.Source(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": name, "source": string(src)})
}

// PutSource handles PUT /api/source.
func (s *Server) PutSource(w http.ResponseWriter, r *http.Request) {
	var body dto.SourceRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	name, err := s.target(body.File)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Engine.SaveSource(r.Context(), name, []byte(body.Source)); err != nil {
		writeError(w, err)
		return
	}
	s.Streams.Broadcast(name, name)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Parse handles POST /api/parse. Source text in the body is parsed as is;
// otherwise the stored file is.
func (s *Server) Parse(w http.ResponseWriter, r *http.Request) {
	var body dto.SourceRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	var (
		g   domain.Graph
		err error
	)
	if body.Source != "" {
		g, err = s.Engine.Parse([]byte(body.Source))
	} else {
		var name string
		if name, err = s.target(body.File); err == nil {
			g, err = s.Engine.Graph(r.Context(), name)
		}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graph": g})
}

type validator interface {
	Validate() error
}

// editFunc changes the named source and may return extra response fields.
type editFunc func(ctx context.Context, name string) (map[string]any, error)

// edit runs op against the request's target and answers with the new
// source text.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, req validator, file string, op editFunc) {
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	name, err := s.target(file)
	if err != nil {
		writeError(w, err)
		return
	}
	extra, err := op(r.Context(), name)
	if err != nil {
		slog.Warn("edit rejected", "file", name, "path", r.URL.Path, "error", err)
		writeError(w, err)
		return
	}
	src, err := s.Engine.Source(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	s.Streams.Broadcast(name, name)

	resp := map[string]any{"source": string(src)}
	for k, v := range extra {
		resp[k] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddSpecNode handles POST /api/add_spec_node.
func (s *Server) AddSpecNode(w http.ResponseWriter, r *http.Request) {
	var body dto.AddSpecNodeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.edit(w, r, body, body.File, func(ctx context.Context, name string) (map[string]any, error) {
		id, err := s.Engine.AddDeclarativeNode(ctx, name, body.NodeSpec())
		if err != nil {
			return nil, err
		}
		return map[string]any{"node_id": id}, nil
	})
}

// AddLink handles POST /api/add_link.
func (s *Server) AddLink(w http.ResponseWriter, r *http.Request) {
	var body dto.AddLinkRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.edit(w, r, body, body.File, func(ctx context.Context, name string) (map[string]any, error) {
		return nil, s.Engine.AddLink(ctx, name, body.WorkflowName, body.Link())
	})
}

// PatchNode handles POST /api/patch_node.
func (s *Server) PatchNode(w http.ResponseWriter, r *http.Request) {
	var body dto.PatchNodeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.edit(w, r, body, body.File, func(ctx context.Context, name string) (map[string]any, error) {
		return nil, s.Engine.PatchCallableBody(ctx, name, body.NodeName, body.NewFunctionCode)
	})
}

// PatchSpecNode handles POST /api/patch_spec_node.
func (s *Server) PatchSpecNode(w http.ResponseWriter, r *http.Request) {
	var body dto.PatchSpecNodeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.edit(w, r, body, body.File, func(ctx context.Context, name string) (map[string]any, error) {
		return nil, s.Engine.PatchDeclarativeNode(ctx, name, body.NodeID, body.SpecPatch())
	})
}

// RenameNode handles POST /api/rename_node.
func (s *Server) RenameNode(w http.ResponseWriter, r *http.Request) {
	var body dto.RenameNodeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.edit(w, r, body, body.File, func(ctx context.Context, name string) (map[string]any, error) {
		return nil, s.Engine.Rename(ctx, name, body.OldName, body.NewName)
	})
}

// DeleteNode handles POST /api/delete_node.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	var body dto.DeleteNodeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s.edit(w, r, body, body.File, func(ctx context.Context, name string) (map[string]any, error) {
		return nil, s.Engine.DeleteNode(ctx, name, body.NodeID)
	})
}

// ExecuteWorkflow handles POST /api/execute_workflow. A failed run is still
// a 200: the error travels under output, the full result next to it.
func (s *Server) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var body dto.ExecuteRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	name, err := s.target(body.File)
	if err != nil {
		writeError(w, err)
		return
	}

	workflow := body.Workflow()
	slog.Info("executing workflow", "file", name, "workflow", workflow)
	res, err := s.Engine.Run(r.Context(), name, workflow, body.Args)
	if err != nil {
		slog.Info("workflow finished", "file", name, "workflow", workflow, "success", false, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"output": map[string]string{"error": err.Error()},
			"result": res,
		})
		return
	}
	slog.Info("workflow finished", "file", name, "workflow", workflow, "success", true)
	writeJSON(w, http.StatusOK, map[string]any{"output": res.Output, "result": res})
}

// ListCredentials handles GET /api/credentials.
func (s *Server) ListCredentials(w http.ResponseWriter, r *http.Request) {
	store := s.credentials()
	providers, err := store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	all := make(map[string]map[string]string, len(providers))
	for _, p := range providers {
		values, err := store.Get(r.Context(), p)
		if err != nil {
			writeError(w, err)
			return
		}
		all[p] = values
	}
	writeJSON(w, http.StatusOK, all)
}

// GetCredentials handles GET /api/credentials/{provider}. Unknown providers
// answer with an empty object.
func (s *Server) GetCredentials(w http.ResponseWriter, r *http.Request) {
	values, err := s.credentials().Get(r.Context(), chi.URLParam(r, "provider"))
	if errors.Is(err, domain.ErrCredentialsNotFound) {
		values, err = map[string]string{}, nil
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

// SetCredentials handles POST /api/credentials.
func (s *Server) SetCredentials(w http.ResponseWriter, r *http.Request) {
	var body dto.CredentialsRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := body.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.credentials().Set(r.Context(), body.Provider, body.Credentials); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
