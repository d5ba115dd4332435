package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"mercado-qa/internal/fixture"
	"mercado-qa/internal/ir"
)

var ErrValidation = errors.New("validation error")

type Parser struct{}

func New() *Parser { return &Parser{} }

// ParseBytes parses YAML (or JSON) into IR and validates it.
func (p *Parser) ParseBytes(b []byte) (*ir.TestSuite, error) {
	var suite ir.TestSuite

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true) // fail on unknown fields

	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := validateSuite(&suite); err != nil {
		return nil, err
	}

	// Normalize HTTP methods
	for i := range suite.Scenarios {
		for j := range suite.Scenarios[i].Steps {
			m := suite.Scenarios[i].Steps[j].Request.Method
			suite.Scenarios[i].Steps[j].Request.Method = strings.ToUpper(m)
		}
	}
	return &suite, nil
}

// --- validation helpers ---

func validateSuite(s *ir.TestSuite) error {
	if s.Name == "" {
		return wrapValidation("suite.name must not be empty")
	}
	if len(s.Scenarios) == 0 {
		return wrapValidation("suite.scenarios must not be empty")
	}
	for name, kind := range s.Generate {
		if !fixture.ValidKind(kind) {
			return wrapValidation(fmt.Sprintf("suite.generate.%s: unknown generator %q", name, kind))
		}
	}
	for i := range s.Scenarios {
		if err := validateScenario(&s.Scenarios[i], i); err != nil {
			return err
		}
	}
	return nil
}

func validateScenario(sc *ir.Scenario, idx int) error {
	if sc.Name == "" {
		return wrapValidation(fmt.Sprintf("scenario[%d].name must not be empty", idx))
	}
	if len(sc.Steps) == 0 {
		return wrapValidation(fmt.Sprintf("scenario[%d].steps must not be empty", idx))
	}
	for j := range sc.Steps {
		if err := validateStep(&sc.Steps[j], idx, j); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(st *ir.Step, i, j int) error {
	if st.Request.Method == "" {
		return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].request.method must not be empty", i, j))
	}
	if st.Request.URL == "" {
		return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].request.url must not be empty", i, j))
	}
	for k, exp := range st.Expect {
		switch exp.Type {
		case ir.ExpectStatus:
			if _, ok := exp.Value.(int); !ok {
				return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].expect[%d]: status value must be an integer", i, j, k))
			}
		case ir.ExpectJSONPath:
			if !strings.HasPrefix(exp.Target, "$") {
				return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].expect[%d]: jsonPath target must start with $", i, j, k))
			}
		case ir.ExpectSchema:
			if _, ok := exp.Value.(map[string]any); !ok {
				return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].expect[%d]: schema value must be a mapping", i, j, k))
			}
		case ir.ExpectContract:
		default:
			return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].expect[%d]: unknown type %q", i, j, k, exp.Type))
		}
	}
	for name, path := range st.Capture {
		if name == "" || !strings.HasPrefix(path, "$") {
			return wrapValidation(fmt.Sprintf("scenario[%d].step[%d].capture.%s: path must start with $", i, j, name))
		}
	}
	return nil
}

func wrapValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
