package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// PayloadSchemaVersion is written into every activities/documents envelope.
const PayloadSchemaVersion = 1

const payloadSchemaURL = "https://casescanner.local/schemas/payload.json"

const payloadSchemaJSON = `{
  "type": "object",
  "required": ["schema_version", "items"],
  "properties": {
    "schema_version": {"type": "integer", "minimum": 1},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["data"],
        "properties": {
          "data": {"type": "string"},
          "tipo": {"type": "string"},
          "texto": {"type": ["string", "null"]},
          "nome_arquivo": {"type": "string"},
          "caminho_relativo": {"type": "string"}
        }
      }
    }
  }
}`

var payloadSchema = mustCompilePayloadSchema()

func mustCompilePayloadSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(payloadSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("payload schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(payloadSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("payload schema: %v", err))
	}
	schema, err := compiler.Compile(payloadSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("payload schema: %v", err))
	}
	return schema
}

type envelope[T any] struct {
	SchemaVersion int `json:"schema_version"`
	Items         []T `json:"items"`
}

// encodePayload writes items as a versioned envelope, keeping non-ASCII and HTML characters as-is.
func encodePayload[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(envelope[T]{SchemaVersion: PayloadSchemaVersion, Items: items}); err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// decodePayload reads an envelope or a legacy bare array. NULL and empty columns yield nil.
func decodePayload[T any](raw sql.NullString) ([]T, error) {
	text := strings.TrimSpace(raw.String)
	if !raw.Valid || text == "" || text == "null" {
		return nil, nil
	}

	if strings.HasPrefix(text, "[") {
		var items []T
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("decode legacy payload: %w", err)
		}
		return items, nil
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	if err := payloadSchema.Validate(inst); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	var env envelope[T]
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if env.SchemaVersion > PayloadSchemaVersion {
		return nil, fmt.Errorf("payload schema version %d is newer than supported %d", env.SchemaVersion, PayloadSchemaVersion)
	}
	return env.Items, nil
}
