package parser

import (
	"errors"
	"fmt"
	"strings"

	"mercado-qa/internal/fixture"
	"mercado-qa/internal/ir"
)

var ErrBrokenChain = errors.New("broken fixture chain")

// CheckChain verifies that every name a step needs is either known up front
// (env vars, generated values, builtins) or captured by an earlier step.
// Shared suites carry captures across scenarios; isolated suites do not.
func CheckChain(s *ir.TestSuite, known []string) error {
	base := map[string]bool{}
	for _, k := range known {
		base[k] = true
	}
	for k := range s.Generate {
		base[k] = true
	}
	for k := range fixture.Builtins() {
		base[k] = true
	}

	var problems []string
	produced := map[string]string{}

	need := func(where string, st ir.Step) {
		for _, req := range fixture.Requirements(st) {
			if base[req] || produced[req] != "" {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s requires %q, which no earlier step captures", where, req))
		}
	}

	for _, sc := range s.Scenarios {
		if s.Isolated {
			produced = map[string]string{}
		}
		for k, a := range sc.Setup {
			if a.Request != nil {
				need(fmt.Sprintf("scenario %q setup[%d]", sc.Name, k), ir.Step{Request: *a.Request})
			}
		}
		for j, st := range sc.Steps {
			where := fmt.Sprintf("scenario %q step[%d] %q", sc.Name, j, st.DisplayName())
			need(where, st)
			for name := range st.Capture {
				if prev := produced[name]; prev != "" {
					problems = append(problems, fmt.Sprintf("%s captures %q, already captured by %q", where, name, prev))
					continue
				}
				if base[name] {
					problems = append(problems, fmt.Sprintf("%s captures %q, which shadows a known variable", where, name))
					continue
				}
				produced[name] = st.DisplayName()
			}
		}
		for k, a := range sc.Teardown {
			if a.Request != nil {
				need(fmt.Sprintf("scenario %q teardown[%d]", sc.Name, k), ir.Step{Request: *a.Request})
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrBrokenChain, strings.Join(problems, "; "))
	}
	return nil
}

// Producers maps every captured name to the step that captures it.
// For isolated suites a later scenario's producer wins; callers only use the
// map to name the producer in messages.
func Producers(s *ir.TestSuite) map[string]string {
	out := map[string]string{}
	for _, sc := range s.Scenarios {
		for _, st := range sc.Steps {
			for name := range st.Capture {
				out[name] = st.DisplayName()
			}
		}
	}
	return out
}
