package actions

import (
	"fmt"
	"sort"
	"strings"
)

// Param is one entry of a flat parameter list. Values for flat params are
// always treated as strings.
type Param struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Schema declares the inputs of an action, either as a flat Params list or as
// a full JSON schema Definition. Exactly one of them is normally set.
type Schema struct {
	Params     []Param
	Definition map[string]any
}

// Params builds a flat schema where every listed param is required.
func Params(params ...Param) Schema {
	return Schema{Params: params}
}

// JSONSchema wraps a full JSON schema object.
func JSONSchema(def map[string]any) Schema {
	return Schema{Definition: def}
}

// JSONSchema normalises both schema styles into a JSON schema object.
func (s Schema) JSONSchema() map[string]any {
	if s.Definition != nil {
		return s.Definition
	}
	props := make(map[string]any, len(s.Params))
	required := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		props[p.Name] = map[string]any{
			"type":        "string",
			"description": p.Description,
		}
		required = append(required, p.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Required lists the required parameter names.
func (s Schema) Required() []string {
	if s.Definition == nil {
		names := make([]string, 0, len(s.Params))
		for _, p := range s.Params {
			names = append(names, p.Name)
		}
		return names
	}
	switch req := s.Definition["required"].(type) {
	case []string:
		return append([]string(nil), req...)
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				names = append(names, name)
			}
		}
		return names
	}
	return nil
}

// Validate checks that every required parameter is present.
func (s Schema) Validate(args map[string]any) error {
	var missing []string
	for _, name := range s.Required() {
		if v, ok := args[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required parameters: %s", strings.Join(missing, ", "))
	}
	return nil
}
