package schema

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// LineError is one transcript line that failed verification.
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Compile builds a validator from the generated transcript schema.
func Compile() (*sjsonschema.Schema, error) {
	schemaJSON, err := Generate()
	if err != nil {
		return nil, err
	}
	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource("transcript-v0.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("transcript-v0.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// VerifyFile checks every line of a JSONL transcript against the
// schema, returning one error per failing line. Empty lines are
// ignored. A nil slice means the whole transcript passed.
func VerifyFile(path string) ([]*LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	sch, err := Compile()
	if err != nil {
		return nil, err
	}

	var errs []*LineError
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var doc interface{}
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			errs = append(errs, &LineError{Line: lineno, Message: fmt.Sprintf("not valid JSON: %v", err)})
			continue
		}
		if err := sch.Validate(doc); err != nil {
			errs = append(errs, &LineError{Line: lineno, Message: validationMessage(err)})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return errs, nil
}

// validationMessage renders a schema validation error as its leaf
// causes, the only parts worth showing for a one-line document.
func validationMessage(err error) string {
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var parts []string
	for _, leaf := range flattenValidationErrors(ve) {
		loc := strings.Join(leaf.InstanceLocation, "/")
		if loc == "" {
			loc = "/"
		}
		parts = append(parts, fmt.Sprintf("%s: %v", loc, leaf.ErrorKind))
	}
	return strings.Join(parts, "; ")
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
