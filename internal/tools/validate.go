package tools

import (
	"encoding/json"
	"fmt"
)

// paramSchema is the subset of JSON Schema the function-calling API uses.
type paramSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]propertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

type propertySchema struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

func parseParamSchema(toolName string, raw json.RawMessage) (*paramSchema, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: tool %q: parameters cannot be empty", ErrSchemaMismatch, toolName)
	}
	var ps paramSchema
	if err := json.Unmarshal(raw, &ps); err != nil {
		return nil, fmt.Errorf("%w: tool %q: parameters must be a JSON Schema object: %v", ErrSchemaMismatch, toolName, err)
	}
	return &ps, nil
}

// validate checks the schema is a well-formed function-calling object
// schema: type "object" and every required name declared in properties.
func (ps *paramSchema) validate(toolName string) error {
	if toolName == "" {
		return fmt.Errorf("%w: tool name cannot be empty", ErrSchemaMismatch)
	}
	if ps.Type != "object" {
		return fmt.Errorf("%w: tool %q: parameters.type must be \"object\", got %q", ErrSchemaMismatch, toolName, ps.Type)
	}
	for _, req := range ps.Required {
		if _, ok := ps.Properties[req]; !ok {
			return fmt.Errorf("%w: tool %q: required parameter %q not declared in properties", ErrSchemaMismatch, toolName, req)
		}
	}
	return nil
}

// validateArgs checks call arguments against the schema before execution:
// all required fields present, known fields type-checked.
func (ps *paramSchema) validateArgs(toolName string, args map[string]any) error {
	for _, req := range ps.Required {
		if _, ok := args[req]; !ok {
			return fmt.Errorf("%w: tool %q: missing required field %q", ErrInvalidArguments, toolName, req)
		}
	}
	for key, value := range args {
		prop, ok := ps.Properties[key]
		if !ok || prop.Type == "" {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("%w: tool %q: field %q: %v", ErrInvalidArguments, toolName, key, err)
		}
	}
	return nil
}

func checkType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		// Arguments arrive through encoding/json, so integers are float64.
		if f, ok := value.(float64); ok && f == float64(int64(f)) {
			return nil
		}
		if isInt(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("expected %s, got %T", expected, value)
}

func isNumber(value any) bool {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isInt(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
