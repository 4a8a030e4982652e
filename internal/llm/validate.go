package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled schemas, keyed by name plus marshaled definition.
var schemas sync.Map

// ValidateJSON checks raw against schema. A nil schema accepts anything.
// Failures, including a schema that does not compile, are
// *ErrInvalidResponse carrying raw.
func ValidateJSON(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}
	invalid := func(format string, args ...any) error {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf(format, args...)}
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return invalid("invalid JSON: %w", err)
	}
	sch, err := compile(schema)
	if err != nil {
		return invalid("schema %s: %w", schema.Name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return invalid("does not match %s: %w", schema.Name, err)
	}
	return nil
}


func compile(s *Schema) (*jsonschema.Schema, error) {
	def, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, err
	}
	key := s.Name + "\x00" + string(def)
	if v, ok := schemas.Load(key); ok {
		return v.(*jsonschema.Schema), nil
	}

	// AddResource wants a decoded document, not a map holding []string.
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, err
	}
	url := "mem:///" + s.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	schemas.Store(key, sch)
	return sch, nil
}
