package protocol

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// programSchemaJSON is the structural layer of validation: required fields,
// shapes, enums, non-empty-where-required. It runs before the hand-written
// semantic/macro/cycle/coordinate/timing passes in Validate so the cheapest,
// most mechanical checks fire first and in bulk.
const programSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "metadata", "actions"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "metadata": {
      "type": "object",
      "required": ["description"],
      "properties": {
        "description": {"type": "string", "minLength": 1},
        "complexity": {"type": "string", "enum": ["simple", "medium", "complex"]},
        "uses_vision": {"type": "boolean"},
        "estimated_duration_seconds": {"type": "integer", "minimum": 1}
      }
    },
    "macros": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "minItems": 1,
        "items": {"$ref": "#/$defs/action"}
      }
    },
    "actions": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/$defs/action"}
    }
  },
  "$defs": {
    "action": {
      "type": "object",
      "required": ["action"],
      "properties": {
        "action": {"type": "string", "minLength": 1},
        "params": {"type": "object"},
        "wait_after_ms": {"type": "integer", "minimum": 0},
        "description": {"type": "string"}
      }
    }
  }
}`

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaOnce sync.Once
	compiledSchemaErr  error
)

func schema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(programSchemaJSON), &doc); err != nil {
			compiledSchemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("program.json", doc); err != nil {
			compiledSchemaErr = err
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile("program.json")
	})
	return compiledSchema, compiledSchemaErr
}

// validateStructure runs the compiled schema against a decoded document
// (map[string]any, as produced by encoding/json.Unmarshal into `any`).
func validateStructure(doc any) error {
	s, err := schema()
	if err != nil {
		return err
	}
	return s.Validate(doc)
}
