package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

var schemaTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
}

// toGenaiSchema converts the input schema of an MCP tool into a Gemini parameter schema.
// Search and scraping servers often describe optional arguments as a union with null
// ("type": ["string", "null"] or an anyOf with a null branch); those become nullable.
func toGenaiSchema(schema *jsonschema.Schema) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	out := &genai.Schema{
		Title:       schema.Title,
		Description: schema.Description,
		Format:      schema.Format,
		Pattern:     schema.Pattern,
		Minimum:     schema.Minimum,
		Maximum:     schema.Maximum,
		MinLength:   toInt64(schema.MinLength),
		MaxLength:   toInt64(schema.MaxLength),
		MinItems:    toInt64(schema.MinItems),
		MaxItems:    toInt64(schema.MaxItems),
	}

	typeNames := schema.Types
	if schema.Type != "" {
		typeNames = []string{schema.Type}
	}
	for _, name := range typeNames {
		if name == "null" {
			out.Nullable = genai.Ptr(true)
			continue
		}
		t, ok := schemaTypes[name]
		if !ok {
			return nil, goerr.New("unsupported schema type", goerr.V("type", name))
		}
		if out.Type != "" && out.Type != t {
			return nil, goerr.New("multiple schema types", goerr.V("types", typeNames))
		}
		out.Type = t
	}

	if out.Type == "" && len(schema.AnyOf) > 0 {
		if err := collapseNullable(out, schema.AnyOf); err != nil {
			return nil, err
		}
	}

	if len(schema.Enum) > 0 {
		out.Enum = make([]string, len(schema.Enum))
		for i, v := range schema.Enum {
			if s, ok := v.(string); ok {
				out.Enum[i] = s
			} else {
				out.Enum[i] = fmt.Sprint(v)
			}
		}
	}

	if len(schema.Default) > 0 {
		var def any
		if err := json.Unmarshal(schema.Default, &def); err != nil {
			return nil, goerr.Wrap(err, "failed to parse default value")
		}
		out.Default = def
	}

	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			converted, err := toGenaiSchema(prop)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert property schema", goerr.V("property", name))
			}
			out.Properties[name] = converted
		}
	}

	if len(schema.Required) > 0 {
		out.Required = schema.Required
	}

	if schema.Items != nil {
		converted, err := toGenaiSchema(schema.Items)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert items schema")
		}
		out.Items = converted
	}

	return out, nil
}

// collapseNullable folds an anyOf of one schema and a null branch into out. Any other
// anyOf is kept as alternatives.
func collapseNullable(out *genai.Schema, anyOf []*jsonschema.Schema) error {
	var branches []*jsonschema.Schema
	nullable := false
	for _, s := range anyOf {
		if s != nil && s.Type == "null" {
			nullable = true
			continue
		}
		branches = append(branches, s)
	}

	if len(branches) == 1 {
		inner, err := toGenaiSchema(branches[0])
		if err != nil {
			return goerr.Wrap(err, "failed to convert anyOf schema")
		}
		out.Type = inner.Type
		out.Format = firstNonEmpty(out.Format, inner.Format)
		out.Description = firstNonEmpty(out.Description, inner.Description)
		out.Properties = inner.Properties
		out.Required = inner.Required
		out.Items = inner.Items
		out.Enum = inner.Enum
		if nullable {
			out.Nullable = genai.Ptr(true)
		}
		return nil
	}

	for _, s := range branches {
		inner, err := toGenaiSchema(s)
		if err != nil {
			return goerr.Wrap(err, "failed to convert anyOf schema")
		}
		out.AnyOf = append(out.AnyOf, inner)
	}
	if nullable {
		out.Nullable = genai.Ptr(true)
	}
	return nil
}

func toInt64(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
