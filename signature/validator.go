package signature

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// NewJSONSchemaValidator compiles schemaJSON once and returns a Validator
// that re-validates every candidate value against it, translating
// jsonschema/v6's error tree into the FieldIssue vocabulary used across the
// engine. Compilation errors are returned immediately rather than deferred to
// first use, so a malformed schema fails when the validator is built, before
// it is attached to a Field.
func NewJSONSchemaValidator(fieldName string, schemaJSON []byte) (Validator, error) {
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("field %s: unmarshal schema: %w", fieldName, err)
	}

	c := jsonschema.NewCompiler()
	resourceID := "field-" + fieldName + ".json"
	if err := c.AddResource(resourceID, schemaDoc); err != nil {
		return nil, fmt.Errorf("field %s: add schema resource: %w", fieldName, err)
	}
	schema, err := c.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("field %s: compile schema: %w", fieldName, err)
	}

	return func(value any) []FieldIssue {
		if err := schema.Validate(value); err != nil {
			return translateValidationError(fieldName, err)
		}
		return nil
	}, nil
}

// translateValidationError maps a jsonschema/v6 validation error into one or
// more FieldIssues. jsonschema/v6 reports a tree of causes; this engine flattens
// it to one issue per leaf cause, classifying by the failing keyword.
func translateValidationError(fieldName string, err error) []FieldIssue {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldIssue{{Field: fieldName, Constraint: "invalid_field_type", Detail: err.Error()}}
	}
	var issues []FieldIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			issues = append(issues, FieldIssue{
				Field:      fieldName,
				Constraint: classifyKeyword(v.KeywordLocation),
				Detail:     v.Error(),
			})
			return
		}
		for _, cause := range v.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return issues
}

// classifyKeyword maps the failing JSON Schema keyword (the trailing segment
// of a keyword location such as "/properties/age/minimum") to the engine's
// small constraint vocabulary. Unrecognized keywords fall back to
// invalid_field_type.
func classifyKeyword(keywordLocation string) string {
	segments := strings.Split(keywordLocation, "/")
	keyword := segments[len(segments)-1]
	switch keyword {
	case "enum", "const":
		return "invalid_enum_value"
	case "pattern":
		return "invalid_pattern"
	case "minLength", "maxLength", "minItems", "maxItems":
		return "invalid_length"
	case "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf":
		return "invalid_range"
	case "required":
		return "missing_field"
	case "format":
		return "invalid_format"
	case "type":
		return "invalid_field_type"
	default:
		return "invalid_field_type"
	}
}
