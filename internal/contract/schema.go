package contract

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// CompileSchema turns a decoded YAML/JSON mapping into an OpenAPI schema.
func CompileSchema(raw any) (*openapi3.Schema, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var s openapi3.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// ValidateSchema checks a raw JSON body against an inline schema.
func ValidateSchema(raw any, body []byte) error {
	s, err := CompileSchema(raw)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("body is not JSON: %w", err)
	}
	return s.VisitJSON(doc)
}
