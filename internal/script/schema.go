package script

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://sticker-composer.local/script.schema.json"

// scriptSchema describes a script document. Unknown step fields are errors.
const scriptSchema = `{
  "type": "object",
  "properties": {
    "name":       {"type": "string"},
    "base_image": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["action"],
        "additionalProperties": false,
        "properties": {
          "action":       {"type": "string", "minLength": 1},
          "sticker":      {"type": "string"},
          "kind":         {"type": "string"},
          "phase":        {"type": "string"},
          "x":            {"type": "number"},
          "y":            {"type": "number"},
          "scale":        {"type": "number", "minimum": 0},
          "rotation":     {"type": "number"},
          "rotation_deg": {"type": "number"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(scriptSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// validate checks a decoded script document against the script schema.
func validate(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
