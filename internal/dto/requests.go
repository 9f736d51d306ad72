// Package dto holds the request bodies shared by the HTTP, RPC and MCP
// control surfaces. Tags match the wire names editors already send.
package dto

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/holon/pkg/patch"
)

// DefaultWorkflow is run when a request names none.
const DefaultWorkflow = "main"

// Target selects the stored source a request applies to. Empty means the
// server's default file.
type Target struct {
	File string `json:"file,omitempty" mapstructure:"file"`
}

// SourceRequest carries raw source text, either to store it or to parse it.
type SourceRequest struct {
	Target `mapstructure:",squash"`
	Source string `json:"source" mapstructure:"source"`
}

type AddSpecNodeRequest struct {
	Target `mapstructure:",squash"`
	NodeID   string         `json:"node_id" mapstructure:"node_id"`
	NodeType string         `json:"node_type" mapstructure:"node_type"`
	Label    string         `json:"label" mapstructure:"label"`
	Props    map[string]any `json:"props" mapstructure:"props"`
}

func (r AddSpecNodeRequest) Validate() error {
	if r.NodeType == "" {
		return errors.New("node_type is required")
	}
	return nil
}

func (r AddSpecNodeRequest) NodeSpec() patch.NodeSpec {
	return patch.NodeSpec{ID: r.NodeID, Type: r.NodeType, Label: r.Label, Props: r.Props}
}

type AddLinkRequest struct {
	Target `mapstructure:",squash"`
	WorkflowName string `json:"workflow_name" mapstructure:"workflow_name"`
	SourceNodeID string `json:"source_node_id" mapstructure:"source_node_id"`
	SourcePort   string `json:"source_port" mapstructure:"source_port"`
	TargetNodeID string `json:"target_node_id" mapstructure:"target_node_id"`
	TargetPort   string `json:"target_port" mapstructure:"target_port"`
}

func (r AddLinkRequest) Validate() error {
	return required(map[string]string{
		"workflow_name":  r.WorkflowName,
		"source_node_id": r.SourceNodeID,
		"source_port":    r.SourcePort,
		"target_node_id": r.TargetNodeID,
		"target_port":    r.TargetPort,
	})
}

func (r AddLinkRequest) Link() patch.Link {
	return patch.Link{
		Source:     r.SourceNodeID,
		SourcePort: r.SourcePort,
		Target:     r.TargetNodeID,
		TargetPort: r.TargetPort,
	}
}

// PatchNodeRequest replaces the function declaration of a step.
type PatchNodeRequest struct {
	Target `mapstructure:",squash"`
	NodeName        string `json:"node_name" mapstructure:"node_name"`
	NewFunctionCode string `json:"new_function_code" mapstructure:"new_function_code"`
}

func (r PatchNodeRequest) Validate() error {
	return required(map[string]string{
		"node_name":         r.NodeName,
		"new_function_code": r.NewFunctionCode,
	})
}

// PatchSpecNodeRequest rewrites the fields of a declarative node whose set_*
// flag is true.
type PatchSpecNodeRequest struct {
	Target `mapstructure:",squash"`
	NodeID      string         `json:"node_id" mapstructure:"node_id"`
	NodeType    string         `json:"node_type" mapstructure:"node_type"`
	Label       string         `json:"label" mapstructure:"label"`
	Props       map[string]any `json:"props" mapstructure:"props"`
	SetNodeType bool           `json:"set_node_type" mapstructure:"set_node_type"`
	SetLabel    bool           `json:"set_label" mapstructure:"set_label"`
	SetProps    bool           `json:"set_props" mapstructure:"set_props"`
}

func (r PatchSpecNodeRequest) Validate() error {
	if r.NodeID == "" {
		return errors.New("node_id is required")
	}
	return nil
}

func (r PatchSpecNodeRequest) SpecPatch() patch.SpecPatch {
	return patch.SpecPatch{
		SetType:  r.SetNodeType,
		Type:     r.NodeType,
		SetLabel: r.SetLabel,
		Label:    r.Label,
		SetProps: r.SetProps,
		Props:    r.Props,
	}
}

type RenameNodeRequest struct {
	Target `mapstructure:",squash"`
	OldName string `json:"old_name" mapstructure:"old_name"`
	NewName string `json:"new_name" mapstructure:"new_name"`
}

func (r RenameNodeRequest) Validate() error {
	return required(map[string]string{"old_name": r.OldName, "new_name": r.NewName})
}

type DeleteNodeRequest struct {
	Target `mapstructure:",squash"`
	NodeID string `json:"node_id" mapstructure:"node_id"`
}

func (r DeleteNodeRequest) Validate() error {
	return required(map[string]string{"node_id": r.NodeID})
}

type ExecuteRequest struct {
	Target `mapstructure:",squash"`
	WorkflowName string         `json:"workflow_name" mapstructure:"workflow_name"`
	Args         map[string]any `json:"args" mapstructure:"args"`
}

// Workflow returns the requested workflow or DefaultWorkflow.
func (r ExecuteRequest) Workflow() string {
	if r.WorkflowName == "" {
		return DefaultWorkflow
	}
	return r.WorkflowName
}

type CredentialsRequest struct {
	Provider    string            `json:"provider" mapstructure:"provider"`
	Credentials map[string]string `json:"credentials" mapstructure:"credentials"`
}

func (r CredentialsRequest) Validate() error {
	if r.Provider == "" {
		return errors.New("provider is required")
	}
	if r.Credentials == nil {
		return errors.New("credentials must be an object")
	}
	return nil
}

// Decode fills out from a loosely typed params object, as received over
// line RPC or MCP.
func Decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: false,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func required(fields map[string]string) error {
	var missing []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s is required", missing[0])
	default:
		return fmt.Errorf("missing required fields: %v", missing)
	}
}
