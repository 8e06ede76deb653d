package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrToolNotFound     = errors.New("tools: tool not found")
	ErrInvalidArguments = errors.New("tools: invalid arguments")
	ErrDuplicateTool    = errors.New("tools: tool already registered")
)

// Dispatcher keeps the registered tools in registration order.
type Dispatcher struct {
	mu    sync.RWMutex
	tools []Tool
	index map[string]int
}

func NewDispatcher(tools ...Tool) *Dispatcher {
	d := &Dispatcher{index: map[string]int{}}
	for _, tool := range tools {
		if err := d.Register(tool); err != nil {
			logger.Warn("skipping tool", "tool.name", tool.Name, "error", err)
		}
	}
	return d
}

func (d *Dispatcher) Register(tool Tool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[tool.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	d.index[tool.Name] = len(d.tools)
	d.tools = append(d.tools, tool)
	return nil
}

// Definitions lists the tools in the shape the session configuration expects.
func (d *Dispatcher) Definitions() []map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	definitions := make([]map[string]any, len(d.tools))
	for i, tool := range d.tools {
		definitions[i] = tool.Definition()
	}
	return definitions
}

// Reset unregisters every tool.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tools = nil
	d.index = map[string]int{}
}

// Call runs the named tool and returns its JSON encoded result. Handler
// errors are not returned; they are encoded as {"error": "..."} so the agent
// can recover. The returned error is only set for results that the agent can
// still read, to let callers log them.
func (d *Dispatcher) Call(ctx context.Context, name, arguments string) (string, error) {
	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	d.mu.RLock()
	i, ok := d.index[name]
	var tool Tool
	if ok {
		tool = d.tools[i]
	}
	d.mu.RUnlock()

	if !ok {
		err := fmt.Errorf("%w: %s", ErrToolNotFound, name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return encode(Error{Error: fmt.Sprintf(`Tool "%s" has not been added`, name)}), err
	}

	result, err := tool.call(ctx, arguments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("tool call failed", "tool.name", name, "error", err)
		return encode(Error{Error: err.Error()}), err
	}
	if e, ok := result.(Error); ok {
		span.SetStatus(codes.Error, e.Error)
		logger.Info("tool returned an error result", "tool.name", name, "result", e.Error)
	}
	return encode(result), nil
}

func encode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to encode tool result", "error", err)
		raw, _ = json.Marshal(Error{Error: "failed to encode tool result"})
	}
	return string(raw)
}
