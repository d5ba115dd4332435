package reporter

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"mercado-qa/internal/contract"
)

type CoverageReport struct {
	Total        int      `json:"total"`
	Covered      int      `json:"covered"`
	Percent      float64  `json:"percent"`
	CoveredSet   []string `json:"covered_set"`
	UncoveredSet []string `json:"uncovered_set"`
}

// covered is: method -> pathTemplate -> true
func WriteCoverage(w io.Writer, doc *openapi3.T, covered map[string]map[string]bool) error {
	rep := ComputeCoverage(doc, covered)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func ComputeCoverage(doc *openapi3.T, covered map[string]map[string]bool) CoverageReport {
	seen := map[contract.OpSig]bool{}
	for method, paths := range covered {
		for path := range paths {
			seen[contract.OpSig{Method: strings.ToUpper(method), Path: path}] = true
		}
	}

	// Operations are sorted, so both lists come out sorted.
	rep := CoverageReport{CoveredSet: []string{}, UncoveredSet: []string{}}
	for _, op := range contract.Operations(doc) {
		rep.Total++
		if seen[op] {
			rep.Covered++
			rep.CoveredSet = append(rep.CoveredSet, op.String())
		} else {
			rep.UncoveredSet = append(rep.UncoveredSet, op.String())
		}
	}
	rep.Percent = pct(rep.Covered, rep.Total)
	return rep
}

func pct(n, d int) float64 {
	if d == 0 {
		return 100.0
	}
	return float64(n) * 100.0 / float64(d)
}
