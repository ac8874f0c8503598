// Package schema exports the JSON Schema for session transcripts and
// checks recorded transcripts against it.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/ormasoftchile/shtrace/pkg/session"
)

// Generate produces a JSON Schema Draft 2020-12 document for one
// transcript record, a single line of the JSONL file written by
// --record.
func Generate() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&session.Record{})
	s.ID = "https://github.com/ormasoftchile/shtrace/schemas/transcript-v0.json"
	s.Title = "shtrace session transcript record"
	s.Description = "Schema for one line of a shtrace JSONL session transcript (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
