package curriculum

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const topicSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "difficulty"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "difficulty": {"type": "integer", "minimum": 1},
    "prerequisites": {
      "type": "object",
      "properties": {
        "required": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "recommended": {"type": "array", "items": {"type": "string", "minLength": 1}}
      },
      "additionalProperties": false
    },
    "chapters": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "ordinal"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string"},
          "ordinal": {"type": "integer", "minimum": 1}
        },
        "additionalProperties": false
      }
    }
  }
}`

var topicSchema *gojsonschema.Schema

func init() {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(topicSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("curriculum: compile topic schema: %v", err))
	}
	topicSchema = s
}

// validateTopicDocument checks a decoded YAML document against the topic schema.
func validateTopicDocument(doc any) error {
	result, err := topicSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate topic document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(msgs, "; "))
}
