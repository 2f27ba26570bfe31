package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/getmockd/rxmux/pkg/flow"
)

// SchemaErrorsKey is the extension bag key holding the messages of a failed
// schema validation.
const SchemaErrorsKey = "__schema_errors"

// Schema compiles a JSON Schema (draft 2020-12 unless the schema says
// otherwise) into a predicate that holds when the JSON request body is
// valid. A body that is not JSON fails the predicate.
func Schema(schemaJSON string) (flow.Predicate, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return func(p *flow.Packet) (bool, error) {
		body, err := Body(p)
		if errors.Is(err, ErrInvalidBody) {
			p.Ext().Set(SchemaErrorsKey, []string{err.Error()})
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if err := schema.Validate(body); err != nil {
			var verr *jsonschema.ValidationError
			if errors.As(err, &verr) {
				p.Ext().Set(SchemaErrorsKey, schemaMessages(verr))
				return false, nil
			}
			return false, err
		}
		return true, nil
	}, nil
}

// MustSchema is Schema that panics on an invalid schema.
func MustSchema(schemaJSON string) flow.Predicate {
	pred, err := Schema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return pred
}

// schemaMessages flattens the leaves of a validation error.
func schemaMessages(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + err.Message}
	}
	var out []string
	for _, c := range err.Causes {
		out = append(out, schemaMessages(c)...)
	}
	return out
}
