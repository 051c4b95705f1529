package llmjson

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared type of a schema field.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindDate
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindStringList:
		return "list of strings"
	default:
		return "unknown"
	}
}

type Field struct {
	Name        string
	Kind        Kind
	Description string
}

// Schema describes the object a model is expected to return.
type Schema struct {
	Name   string
	Fields []Field
}

func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// JSONSchema renders the schema as a JSON Schema object for structured output.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		prop := map[string]any{}
		switch f.Kind {
		case KindNumber:
			prop["type"] = "number"
		case KindStringList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		case KindDate:
			prop["type"] = "string"
			prop["format"] = "date"
		default:
			prop["type"] = "string"
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		properties[f.Name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func (s Schema) apply(obj map[string]any) Result {
	result := Result{Fields: make(map[string]any), Decoded: true}
	if len(s.Fields) == 0 {
		for key, value := range obj {
			result.Fields[key] = normalizeValue(value)
		}
		return result
	}

	for _, f := range s.Fields {
		raw, ok := obj[f.Name]
		if !ok || raw == nil {
			continue
		}
		value, err := f.convert(raw)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("field %s: %v", f.Name, err))
			continue
		}
		if value == nil {
			continue
		}
		result.Fields[f.Name] = value
	}
	return result
}

func (f Field) convert(raw any) (any, error) {
	switch f.Kind {
	case KindString, KindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %s", f.Kind, typeName(raw))
		}
		return cleanString(s), nil
	case KindNumber:
		return convertNumber(raw)
	case KindStringList:
		return convertStringList(raw)
	default:
		return nil, fmt.Errorf("unsupported field kind %d", f.Kind)
	}
}

func convertNumber(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Float64()
		if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
			return nil, fmt.Errorf("number %q out of range", v.String())
		}
		return n, nil
	case string:
		cleaned := cleanString(v)
		if cleaned == nil {
			return nil, nil
		}
		n, ok := parseNumericString(cleaned.(string))
		if !ok {
			return nil, fmt.Errorf("expected number, got string %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("expected number, got %s", typeName(raw))
	}
}

func convertStringList(raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list of strings, got %s", typeName(raw))
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			if item == nil {
				continue
			}
			return nil, fmt.Errorf("expected list of strings, element %d is %s", i, typeName(item))
		}
		if cleaned := cleanString(s); cleaned != nil {
			out = append(out, cleaned.(string))
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// cleanString trims the value and maps placeholder values to nil.
func cleanString(s string) any {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "null", "none", "n/a":
		return nil
	}
	return trimmed
}

func parseNumericString(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '₹', ',', ' ', ' ':
			return -1
		default:
			return r
		}
	}, s)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func normalizeValue(v any) any {
	switch typed := v.(type) {
	case json.Number:
		if n, err := typed.Float64(); err == nil {
			return n
		}
		return typed.String()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
