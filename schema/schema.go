// Package schema implements Quillmark's C6 schema engine: building a
// JSON-Schema from a Quill manifest's [fields]/[cards] tables, applying
// defaults, coercing types, and validating documents. Grounded on
// original_source/quillmark-core/src/validation.rs, with the required-field
// rule following spec.md section 4.5's literal statement rather than the
// original's apparent double-default-check.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quillmark-go/quillmark/diag"
	"github.com/quillmark-go/quillmark/value"
)

// FieldSchema mirrors one [fields.<name>] table from Quill.toml.
type FieldSchema struct {
	Type        string
	Description string
	Required    bool
	Default     *value.Value
	Enum        []value.Value
	Example     *value.Value
	Examples    []value.Value
	UI          *value.Value // arbitrary non-schema metadata -> x-ui
}

// jsonType maps a Quill field type to its JSON-Schema "type" and optional format.
func jsonType(t string) (string, string) {
	switch t {
	case "str", "string":
		return "string", ""
	case "date":
		return "string", "date"
	case "datetime":
		return "string", "date-time"
	case "number":
		return "number", ""
	case "boolean":
		return "boolean", ""
	case "array":
		return "array", ""
	case "dict":
		return "object", ""
	default:
		return "string", ""
	}
}

// BuildSchema builds a JSON-Schema Value from a name-ordered field list.
// fieldNames preserves manifest declaration order; fields supplies the
// per-name definition. The Quill loader passes each [cards.<name>] table as
// one more entry with Type "array"; a card's own sub-fields are not built
// into a nested schema.
func BuildSchema(fieldNames []string, fields map[string]FieldSchema) (value.Value, error) {
	props := value.NewOrderedMap()
	var required []value.Value
	defaults := value.NewOrderedMap()

	for _, name := range fieldNames {
		fs := fields[name]
		propSchema := value.NewOrderedMap()
		jt, format := jsonType(fs.Type)
		propSchema.Set("type", value.String(jt))
		if format != "" {
			propSchema.Set("format", value.String(format))
		}
		if fs.Description != "" {
			propSchema.Set("description", value.String(fs.Description))
		}
		if len(fs.Enum) > 0 {
			propSchema.Set("enum", value.Array(fs.Enum))
		}
		if fs.Default != nil {
			propSchema.Set("default", *fs.Default)
			defaults.Set(name, *fs.Default)
		}
		examples := fs.Examples
		if fs.Example != nil {
			examples = append([]value.Value{*fs.Example}, examples...)
		}
		if len(examples) > 0 {
			propSchema.Set("examples", value.Array(examples))
		}
		if fs.UI != nil {
			propSchema.Set("x-ui", *fs.UI)
		}
		props.Set(name, value.Object(propSchema))

		// A field is required iff default is absent AND required is true.
		if fs.Default == nil && fs.Required {
			required = append(required, value.String(name))
		}
	}

	root := value.NewOrderedMap()
	root.Set("type", value.String("object"))
	root.Set("properties", value.Object(props))
	if len(required) > 0 {
		root.Set("required", value.Array(required))
	}
	root.Set("additionalProperties", value.Bool(true))
	root.Set("x-defaults", value.Object(defaults))
	return value.Object(root), nil
}

// StripSchemaFields removes the x-ui key recursively from a schema tree,
// for LLM-facing or introspection exposure.
func StripSchemaFields(v value.Value) value.Value {
	switch v.Kind() {
	case value.KindObject:
		obj, _ := v.AsObject()
		out := value.NewOrderedMap()
		for _, k := range obj.Keys() {
			if k == "x-ui" {
				continue
			}
			child, _ := obj.Get(k)
			out.Set(k, StripSchemaFields(child))
		}
		return value.Object(out)
	case value.KindArray:
		arr, _ := v.AsArray()
		out := make([]value.Value, len(arr))
		for i, item := range arr {
			out[i] = StripSchemaFields(item)
		}
		return value.Array(out)
	default:
		return v
	}
}

func schemaProperties(schema value.Value) (*value.OrderedMap, bool) {
	obj, ok := schema.AsObject()
	if !ok {
		return nil, false
	}
	propsVal, ok := obj.Get("properties")
	if !ok {
		return nil, false
	}
	props, ok := propsVal.AsObject()
	return props, ok
}

func schemaRequired(schema value.Value) map[string]bool {
	out := map[string]bool{}
	obj, ok := schema.AsObject()
	if !ok {
		return out
	}
	reqVal, ok := obj.Get("required")
	if !ok {
		return out
	}
	arr, _ := reqVal.AsArray()
	for _, r := range arr {
		if s, ok := r.AsStr(); ok {
			out[s] = true
		}
	}
	return out
}

func propertyType(propSchema value.Value) string {
	obj, ok := propSchema.AsObject()
	if !ok {
		return ""
	}
	t, _ := obj.Get("type")
	s, _ := t.AsStr()
	return s
}

func propertyDefault(propSchema value.Value) (value.Value, bool) {
	obj, ok := propSchema.AsObject()
	if !ok {
		return value.Value{}, false
	}
	return obj.Get("default")
}

// ApplyDefaults inserts, for every schema field with a default, a clone of
// the default value when the document field is missing. Never overrides an
// existing value.
func ApplyDefaults(fields *value.OrderedMap, schema value.Value) *value.OrderedMap {
	out := fields.Clone()
	props, ok := schemaProperties(schema)
	if !ok {
		return out
	}
	for _, name := range props.Keys() {
		propSchema, _ := props.Get(name)
		def, hasDefault := propertyDefault(propSchema)
		if !hasDefault {
			continue
		}
		if _, exists := out.Get(name); !exists {
			out.Set(name, def.Clone())
		}
	}
	return out
}

// CoerceDocument performs type-driven repair: array-wrapping, boolean and
// numeric string coercion, and stringification of non-string primitives,
// per spec.md section 4.5. No coercion crosses object boundaries.
func CoerceDocument(fields *value.OrderedMap, schema value.Value) *value.OrderedMap {
	out, _ := CoerceDocumentWithWarnings(fields, schema)
	return out
}

// CoerceDocumentWithWarnings is CoerceDocument plus a Diagnostic per field
// actually changed, grounded on quillmark-core/src/error.rs's
// RenderResult::with_warning: callers that want audit-trail visibility into
// what got coerced (e.g. "field X: string coerced to array") can surface
// these in RenderResult.Warnings; ProcessGlue/DryRun discard them.
func CoerceDocumentWithWarnings(fields *value.OrderedMap, schema value.Value) (*value.OrderedMap, []diag.Diagnostic) {
	out := fields.Clone()
	props, ok := schemaProperties(schema)
	if !ok {
		return out, nil
	}
	var warnings []diag.Diagnostic
	for _, name := range props.Keys() {
		propSchema, _ := props.Get(name)
		want := propertyType(propSchema)
		cur, exists := out.Get(name)
		if !exists {
			continue
		}
		coerced := coerceValue(cur, want)
		if coerced.Kind() != cur.Kind() {
			warnings = append(warnings, diag.New(diag.Warning,
				fmt.Sprintf("field %q: coerced to %s", name, want)).
				WithCode("schema::coerced"))
		}
		out.Set(name, coerced)
	}
	return out, warnings
}

func coerceValue(v value.Value, want string) value.Value {
	switch want {
	case "array":
		if v.IsArray() {
			return v
		}
		return value.Array([]value.Value{v})
	case "boolean":
		if _, ok := v.AsBool(); ok {
			return v
		}
		if s, ok := v.AsStr(); ok {
			lower := strings.ToLower(s)
			if lower == "true" || lower == "false" {
				return value.Bool(lower == "true")
			}
			return v
		}
		if n, ok := v.AsI64(); ok {
			return value.Bool(n != 0)
		}
		if f, ok := v.AsF64(); ok {
			return value.Bool(f != 0)
		}
		return v
	case "number":
		if _, ok := v.AsI64(); ok {
			return v
		}
		if _, ok := v.AsF64(); ok {
			return v
		}
		if s, ok := v.AsStr(); ok {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return value.Int(i)
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return value.Float(f)
			}
		}
		return v
	case "string":
		if v.IsString() {
			return v
		}
		switch v.Kind() {
		case value.KindObject, value.KindArray:
			return v
		default:
			return value.String(v.String())
		}
	default:
		return v
	}
}

// ValidateDocument checks fields against schema's required list, per-field
// type, and enum constraints, returning a ValidationFailed error naming the
// first offending path on mismatch.
func ValidateDocument(fields *value.OrderedMap, schema value.Value) error {
	props, ok := schemaProperties(schema)
	if !ok {
		return nil
	}
	required := schemaRequired(schema)
	for _, name := range props.Keys() {
		if !required[name] {
			continue
		}
		if _, exists := fields.Get(name); !exists {
			return validationError(name, fmt.Sprintf("required field %q is missing", name))
		}
	}
	for _, name := range props.Keys() {
		cur, exists := fields.Get(name)
		if !exists {
			continue
		}
		propSchema, _ := props.Get(name)
		want := propertyType(propSchema)
		if !typeMatches(cur, want) {
			return validationError(name, fmt.Sprintf("field %q expected type %q, got %v", name, want, cur.Kind()))
		}
		if propObj, ok := propSchema.AsObject(); ok {
			if enumVal, hasEnum := propObj.Get("enum"); hasEnum {
				if arr, ok := enumVal.AsArray(); ok && !containsValue(arr, cur) {
					return validationError(name, fmt.Sprintf("field %q value not in enum", name))
				}
			}
		}
	}
	return nil
}

func containsValue(arr []value.Value, v value.Value) bool {
	for _, item := range arr {
		if item.String() == v.String() && item.Kind() == v.Kind() {
			return true
		}
	}
	return false
}

func typeMatches(v value.Value, want string) bool {
	switch want {
	case "string":
		return v.IsString()
	case "number":
		_, isI := v.AsI64()
		_, isF := v.AsF64()
		return isI || isF
	case "boolean":
		_, ok := v.AsBool()
		return ok
	case "array":
		return v.IsArray()
	case "object":
		return v.IsObject()
	default:
		return true
	}
}

func validationError(path, message string) error {
	return &diag.ValidationFailed{Diag: diag.New(diag.Error, fmt.Sprintf("Validation error at %s: %s", path, message)).
		WithCode("schema::validation_failed").
		WithHint(fmt.Sprintf("check field %q against the Quill's declared schema", path))}
}
