package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercado-qa/internal/contract"
	"mercado-qa/internal/ir"
	"mercado-qa/internal/mercado"
	"mercado-qa/internal/parser"
)

// loadSuite returns the embedded Mercado suite when path is empty.
func loadSuite(path string) (*ir.TestSuite, error) {
	if path == "" {
		return mercado.Suite()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	suite, err := parser.New().ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return suite, nil
}

// loadContract resolves the OpenAPI document: the flag wins, else the suite's
// openapi field relative to the suite file. The embedded suite uses the
// embedded document. A nil validator means no contract is available.
func loadContract(flagPath, suitePath string, suite *ir.TestSuite) (*contract.Validator, error) {
	switch {
	case flagPath != "":
		return contract.LoadFromFile(flagPath)
	case suite.OpenAPI == "":
		return nil, nil
	case suitePath == "":
		return mercado.Contract()
	case filepath.IsAbs(suite.OpenAPI):
		return contract.LoadFromFile(suite.OpenAPI)
	default:
		return contract.LoadFromFile(filepath.Join(filepath.Dir(suitePath), suite.OpenAPI))
	}
}

func knownNames(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for k := range vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterByTags(in []ir.Scenario, include, exclude []string) []ir.Scenario {
	if len(include) == 0 && len(exclude) == 0 {
		return in
	}
	toSet := func(ss []string) map[string]bool {
		m := map[string]bool{}
		for _, s := range ss {
			m[strings.ToLower(s)] = true
		}
		return m
	}
	inc, exc := toSet(include), toSet(exclude)
	hasAny := func(tags []string, m map[string]bool) bool {
		for _, t := range tags {
			if m[strings.ToLower(t)] {
				return true
			}
		}
		return false
	}
	out := make([]ir.Scenario, 0, len(in))
	for _, sc := range in {
		if len(inc) > 0 && !hasAny(sc.Tags, inc) {
			continue
		}
		if len(exc) > 0 && hasAny(sc.Tags, exc) {
			continue
		}
		out = append(out, sc)
	}
	return out
}
