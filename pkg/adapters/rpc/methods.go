package rpc

import (
	"context"
	"errors"

	"github.com/aretw0/holon/internal/dto"
	"github.com/aretw0/holon/pkg/extract"
	"github.com/aretw0/holon/pkg/patch"
)

func (s *Server) standardMethods() map[string]Method {
	return map[string]Method{
		"hello": func(context.Context, map[string]any) (any, error) {
			return "hello from holon-core", nil
		},
		"ping": func(context.Context, map[string]any) (any, error) {
			return "pong", nil
		},
		MethodShutdown: func(context.Context, map[string]any) (any, error) {
			return MethodShutdown, nil
		},
		"parse":                  s.parse,
		"lint":                   s.lint,
		"rename_node":            s.renameNode,
		"add_declarative_node":   s.addDeclarativeNode,
		"add_link":               s.addLink,
		"patch_declarative_node": s.patchDeclarativeNode,
		"patch_callable_body":    s.patchCallableBody,
		"delete_node":            s.deleteNode,
	}
}

// source extracts the mandatory source text of a request.
func source(params map[string]any) ([]byte, error) {
	var req dto.SourceRequest
	if err := dto.Decode(params, &req); err != nil {
		return nil, err
	}
	if req.Source == "" {
		return nil, errors.New("source is required")
	}
	return []byte(req.Source), nil
}

type validator interface {
	Validate() error
}

// decode reads the source and the typed params of an edit request.
func decode(params map[string]any, req validator) ([]byte, error) {
	src, err := source(params)
	if err != nil {
		return nil, err
	}
	if err := dto.Decode(params, req); err != nil {
		return nil, err
	}
	return src, req.Validate()
}

type editResult struct {
	Source string `json:"source"`
	NodeID string `json:"node_id,omitempty"`
}

func (s *Server) parse(_ context.Context, params map[string]any) (any, error) {
	src, err := source(params)
	if err != nil {
		return nil, err
	}
	g, err := extract.Extract(src)
	if err != nil {
		return nil, err
	}
	return map[string]any{"graph": s.registry.Annotate(g)}, nil
}

func (s *Server) lint(_ context.Context, params map[string]any) (any, error) {
	src, err := source(params)
	if err != nil {
		return nil, err
	}
	_, issues, err := extract.Lint(src, s.registry.Has)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []extract.Issue{}
	}
	return map[string]any{"issues": issues}, nil
}

func (s *Server) renameNode(_ context.Context, params map[string]any) (any, error) {
	var req dto.RenameNodeRequest
	src, err := decode(params, &req)
	if err != nil {
		return nil, err
	}
	return edited(patch.Rename(src, req.OldName, req.NewName))
}

func (s *Server) addDeclarativeNode(_ context.Context, params map[string]any) (any, error) {
	var req dto.AddSpecNodeRequest
	src, err := decode(params, &req)
	if err != nil {
		return nil, err
	}
	out, id, err := patch.AddDeclarativeNode(src, req.NodeSpec())
	if err != nil {
		return nil, err
	}
	return editResult{Source: string(out), NodeID: id}, nil
}

func (s *Server) addLink(_ context.Context, params map[string]any) (any, error) {
	var req dto.AddLinkRequest
	src, err := decode(params, &req)
	if err != nil {
		return nil, err
	}
	return edited(patch.AddLink(src, req.WorkflowName, req.Link()))
}

func (s *Server) patchDeclarativeNode(_ context.Context, params map[string]any) (any, error) {
	var req dto.PatchSpecNodeRequest
	src, err := decode(params, &req)
	if err != nil {
		return nil, err
	}
	return edited(patch.PatchDeclarativeNode(src, req.NodeID, req.SpecPatch()))
}

func (s *Server) patchCallableBody(_ context.Context, params map[string]any) (any, error) {
	var req dto.PatchNodeRequest
	src, err := decode(params, &req)
	if err != nil {
		return nil, err
	}
	return edited(patch.PatchCallableBody(src, req.NodeName, req.NewFunctionCode))
}

func (s *Server) deleteNode(_ context.Context, params map[string]any) (any, error) {
	var req dto.DeleteNodeRequest
	src, err := decode(params, &req)
	if err != nil {
		return nil, err
	}
	return edited(patch.DeleteNode(src, req.NodeID))
}

func edited(out []byte, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return editResult{Source: string(out)}, nil
}
