package dungeons

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["structure", "type", "difficulty"],
  "properties": {
    "structure": {"type": "string"},
    "type": {"type": "string"},
    "difficulty": {"type": "integer"}
  }
}`

var recordSchema = jsonschema.MustCompileString("dungeon_record.schema.json", recordSchemaJSON)

// decodeRecord checks the record shape against the schema, then decodes it.
func decodeRecord(raw []byte) (rawRecord, error) {
	var rec rawRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return rec, fmt.Errorf("json: %w", err)
	}
	if err := recordSchema.Validate(v); err != nil {
		return rec, fmt.Errorf("schema: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("json: %w", err)
	}
	return rec, nil
}
