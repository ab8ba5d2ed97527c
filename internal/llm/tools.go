package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolHandler executes a tool call. Arguments and results are plain JSON-like values.
type ToolHandler func(ctx context.Context, args map[string]any) (map[string]any, error)

// ToolParam describes a single string parameter of a tool
type ToolParam struct {
	Name        string
	Description string
	Required    bool
}

// Tool is a function the model may call while answering a request
type Tool struct {
	Name        string
	Description string
	Params      []ToolParam
	Handler     ToolHandler
}

// ToolRequest is a prompt answered by a model that may call tools before replying.
type ToolRequest struct {
	System string
	Prompt string
	Tier   ModelTier
	Tools  []Tool
	// JSON asks for the final answer to be a JSON document.
	JSON bool
}

// ToolCallError reports a model requesting a tool that was not offered.
type ToolCallError struct {
	Name string
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("model requested unknown tool %q", e.Name)
}

// StringArg extracts a string argument from a tool call.
func StringArg(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, raw)
	}
	return s, nil
}

// ToMap converts a JSON-serializable value into the generic map form tool results use.
func ToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("tool result is not a JSON object: %w", err)
	}
	return out, nil
}

func findTool(tools []Tool, name string) (Tool, bool) {
	for _, tool := range tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

// callTool runs a tool and folds handler errors into the result so the model can react to them.
func callTool(ctx context.Context, tools []Tool, name string, args map[string]any) (map[string]any, error) {
	tool, ok := findTool(tools, name)
	if !ok {
		return nil, &ToolCallError{Name: name}
	}
	result, err := tool.Handler(ctx, args)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}
