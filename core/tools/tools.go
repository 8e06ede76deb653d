// Package tools dispatches agent tool calls to typed Go handlers.
//
// A tool declares its arguments as a Go struct; the JSON schema sent to the
// agent is reflected from that struct so the two cannot drift apart.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Tool is a named handler the agent may call.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema

	call func(ctx context.Context, arguments string) (any, error)
}

// New builds a tool whose arguments are decoded into Args.
func New[Args any](name, description string, handler func(ctx context.Context, args Args) (any, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Parameters:  Schema[Args](),
		call: func(ctx context.Context, arguments string) (any, error) {
			var args Args
			if arguments != "" {
				if err := json.Unmarshal([]byte(arguments), &args); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
				}
			}
			return handler(ctx, args)
		},
	}
}

// Schema reflects the parameter schema of Args inline, without references.
func Schema[Args any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true, Anonymous: true}
	schema := reflector.ReflectFromType(reflect.TypeFor[Args]())
	schema.Version = ""
	return schema
}

// Definition is the tool as registered with the realtime session.
func (t Tool) Definition() map[string]any {
	return map[string]any{
		"type":        "function",
		"name":        t.Name,
		"description": t.Description,
		"parameters":  t.Parameters,
	}
}

// Error is the structured result returned to the agent when a tool fails.
type Error struct {
	Error string `json:"error"`
}
