package registry

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"sync"
	"text/template"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/holon/pkg/domain"
	"github.com/aretw0/holon/pkg/schema"
)

// Builtin type ids.
const (
	TypeMemoryBuffer = "memory.buffer"
	TypeModel        = "llm.model"
	TypeTool         = "tool.function"
	TypeProps        = "holon.props"
	TypeTemplate     = "holon.template"
)

// DefaultMaxMessages bounds a memory.buffer that does not set max_messages.
const DefaultMaxMessages = 10

// Builtins returns the descriptors every registry built with
// NewWithBuiltins starts from.
func Builtins() []Descriptor {
	return []Descriptor{
		{
			Type:        TypeMemoryBuffer,
			Description: "Bounded FIFO of messages; the oldest message is dropped when full.",
			Props:       schema.Schema{"max_messages": schema.Optional(schema.Int())},
			Defaults:    map[string]any{"max_messages": DefaultMaxMessages},
			Ports:       []domain.Port{{Name: domain.OutputPort, Kind: domain.PortMemory}},
			Resolve:     resolveBuffer,
		},
		{
			Type:        TypeModel,
			Description: "Language model configuration handed to invocable nodes.",
			Props: schema.Schema{
				"model_name":  schema.String(),
				"provider":    schema.Optional(schema.String()),
				"temperature": schema.Optional(schema.Float()),
				"max_tokens":  schema.Optional(schema.Int()),
			},
			Ports:   []domain.Port{{Name: domain.OutputPort, Kind: domain.PortModel}},
			Resolve: decodeInto[ModelConfig],
		},
		{
			Type:        TypeTool,
			Description: "Tool descriptor exposed to invocable nodes.",
			Props: schema.Schema{
				"name":        schema.String(),
				"description": schema.Optional(schema.String()),
				"parameters":  schema.Optional(schema.Map()),
			},
			Ports:   []domain.Port{{Name: domain.OutputPort, Kind: domain.PortTools}},
			Resolve: decodeInto[ToolSpec],
		},
		{
			Type:        TypeProps,
			Description: "Exposes its literal props unchanged.",
			Ports:       []domain.Port{{Name: domain.OutputPort, Kind: domain.PortData}},
			Resolve: func(_ context.Context, props map[string]any) (any, error) {
				return NewPropertyBag(props), nil
			},
		},
		{
			Type:        TypeTemplate,
			Description: "Renders a text/template with its input, model and memory.",
			Props: schema.Schema{
				"template": schema.String(),
				"fallback": schema.Optional(schema.Any()),
			},
			Ports: []domain.Port{
				{Name: KwInput, Kind: domain.PortData, Input: true},
				{Name: KwModel, Kind: domain.PortModel, Input: true},
				{Name: KwMemory, Kind: domain.PortMemory, Input: true},
				{Name: domain.OutputPort, Kind: domain.PortData},
			},
			Invocable: true,
			Resolve:   resolveTemplate,
		},
	}
}

// decodeInto decodes props into a fresh T with mapstructure, accepting JSON
// style numbers for integer fields.
func decodeInto[T any](_ context.Context, props map[string]any) (any, error) {
	var out T
	if err := decode(props, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decode(props map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(props)
}

// ModelConfig is the runtime object of an llm.model node.
type ModelConfig struct {
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Provider    string  `mapstructure:"provider" json:"provider,omitempty"`
	Temperature float64 `mapstructure:"temperature" json:"temperature,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens,omitempty"`
}

// ToolSpec is the runtime object of a tool.function node.
type ToolSpec struct {
	Name        string         `mapstructure:"name" json:"name"`
	Description string         `mapstructure:"description" json:"description,omitempty"`
	Parameters  map[string]any `mapstructure:"parameters" json:"parameters,omitempty"`
}

// MessageBuffer is a bounded FIFO. It is the runtime object of memory.buffer.
type MessageBuffer struct {
	MaxMessages int `mapstructure:"max_messages"`

	mu       sync.Mutex
	messages []any
}

func resolveBuffer(_ context.Context, props map[string]any) (any, error) {
	b := &MessageBuffer{}
	if err := decode(props, b); err != nil {
		return nil, err
	}
	if b.MaxMessages <= 0 {
		return nil, fmt.Errorf("max_messages must be positive, got %d", b.MaxMessages)
	}
	return b, nil
}

// NewMessageBuffer returns an empty buffer holding at most limit messages.
func NewMessageBuffer(limit int) *MessageBuffer {
	if limit <= 0 {
		limit = DefaultMaxMessages
	}
	return &MessageBuffer{MaxMessages: limit}
}

// Add appends msg, dropping the oldest message when the buffer is full.
func (b *MessageBuffer) Add(msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	if over := len(b.messages) - b.MaxMessages; over > 0 {
		b.messages = append(b.messages[:0:0], b.messages[over:]...)
	}
}

// Messages returns a copy of the buffered messages, oldest first.
func (b *MessageBuffer) Messages() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]any(nil), b.messages...)
}

func (b *MessageBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

func (b *MessageBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

// PropertyBag stands in for a node whose props are all there is to it. The
// engine also uses it for unregistered types when the fallback is enabled.
type PropertyBag struct {
	Type  string
	props map[string]any
}

// NewPropertyBag copies props into a bag.
func NewPropertyBag(props map[string]any) *PropertyBag {
	return &PropertyBag{props: maps.Clone(props)}
}

// Get returns one prop.
func (p *PropertyBag) Get(key string) (any, bool) {
	v, ok := p.props[key]
	return v, ok
}

// Props returns a copy of every prop.
func (p *PropertyBag) Props() map[string]any {
	out := maps.Clone(p.props)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

// Output publishes the props themselves.
func (p *PropertyBag) Output() any { return p.Props() }

// Template is the runtime object of holon.template.
type Template struct {
	tmpl *template.Template
}

func resolveTemplate(_ context.Context, props map[string]any) (any, error) {
	text, _ := props["template"].(string)
	tmpl, err := template.New("holon").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, err
	}
	return &Template{tmpl: tmpl}, nil
}

// Invoke renders the template with the keyword set as data. A memory buffer
// passed under "memory" records the input and the rendered text.
func (t *Template) Invoke(_ context.Context, kwargs map[string]any) (any, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, kwargs); err != nil {
		return nil, err
	}
	out := buf.String()
	if mem, ok := kwargs[KwMemory].(*MessageBuffer); ok {
		if in := kwargs[KwInput]; in != nil {
			mem.Add(in)
		}
		mem.Add(out)
	}
	return out, nil
}
