package toolexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/minechat/llmbridge/internal/jsonschema"
	"github.com/minechat/llmbridge/internal/utils"
	"github.com/minechat/llmbridge/providers/ai"
)

// builtin binds a function tool descriptor to its typed handler.
type builtin struct {
	descriptor ai.ToolDescriptor
	run        func(ctx context.Context, arguments string) (string, error)
}

// newBuiltin wraps a strongly typed handler: the model-supplied argument JSON
// is parsed (with repair) into I, the handler runs, and its output is
// marshaled back to JSON for the tool result message.
func newBuiltin[I any](name, description string, run func(ctx context.Context, input I) (any, error)) builtin {
	return builtin{
		descriptor: ai.ToolDescriptor{
			Kind: ai.ToolKindFunction,
			Function: &ai.FunctionTool{
				Name:        name,
				Description: description,
				Parameters:  schemaFor[I](),
			},
		},
		run: func(ctx context.Context, arguments string) (string, error) {
			input, err := utils.ParseStringAs[I](arguments)
			if err != nil {
				return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
			}

			output, err := run(ctx, input)
			if err != nil {
				return "", err
			}

			encoded, err := json.Marshal(output)
			if err != nil {
				return "", fmt.Errorf("failed to encode %s output: %w", name, err)
			}
			return string(encoded), nil
		},
	}
}

func schemaFor[I any]() *jsonschema.Schema {
	schema, err := jsonschema.GenerateJSONSchema[I]()
	if err != nil {
		// Built-in input types are compile-time constants; generation cannot
		// fail for them at runtime.
		panic(err)
	}
	return schema
}

// Registry is the built-in tool executor. It satisfies the tool loop's
// Executor interface and advertises its tools as canonical descriptors.
type Registry struct {
	tools map[string]builtin
	order []string
}

// NewRegistry returns a Registry with the shipped built-in tools registered.
func NewRegistry() *Registry {
	registry := &Registry{tools: map[string]builtin{}}

	registry.register(newCurrentTimeTool())
	registry.register(newCalculateTool())
	registry.register(newWeatherTool())
	registry.register(newWebFetchTool())

	return registry
}

func (r *Registry) register(tool builtin) {
	name := tool.descriptor.Function.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Descriptors returns the tool descriptors in registration order, ready to be
// attached to a ChatRequest.
func (r *Registry) Descriptors() []ai.ToolDescriptor {
	descriptors := make([]ai.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		descriptors = append(descriptors, r.tools[name].descriptor)
	}
	return descriptors
}

// Execute runs one tool call. Unknown tools and handler failures come back as
// unsuccessful results, never as panics or dropped calls.
func (r *Registry) Execute(ctx context.Context, call ai.ToolCall) ai.ExecutionResult {
	tool, ok := r.tools[call.Function.Name]
	if !ok {
		return ai.ExecutionResult{Success: false, Error: fmt.Sprintf("unknown tool: %s", call.Function.Name)}
	}

	result, err := tool.run(ctx, call.Function.Arguments)
	if err != nil {
		return ai.ExecutionResult{Success: false, Error: err.Error()}
	}
	return ai.ExecutionResult{Success: true, Result: result}
}
