// Package mercado ships the Mercado API suite and its OpenAPI document.
package mercado

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"mercado-qa/internal/contract"
	"mercado-qa/internal/executor"
	"mercado-qa/internal/ir"
	"mercado-qa/internal/parser"
)

//go:embed suite.yaml
var suiteYAML []byte

//go:embed openapi.yaml
var openapiYAML []byte

// Fixture names captured by the suite.
const (
	MarketID    = "marketId"
	FruitID     = "fruitId"
	VegetableID = "vegetableId"
)

// BaseURLVar is the variable every request URL starts from.
const BaseURLVar = "baseUrl"

// SuiteSource returns the raw embedded suite.
func SuiteSource() []byte {
	return append([]byte(nil), suiteYAML...)
}

// OpenAPISource returns the raw embedded OpenAPI document.
func OpenAPISource() []byte {
	return append([]byte(nil), openapiYAML...)
}

// Suite parses a fresh copy of the embedded suite.
func Suite() (*ir.TestSuite, error) {
	s, err := parser.New().ParseBytes(suiteYAML)
	if err != nil {
		return nil, fmt.Errorf("mercado suite: %w", err)
	}
	return s, nil
}

// Contract loads the embedded OpenAPI document.
func Contract() (*contract.Validator, error) {
	v, err := contract.LoadFromBytes(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("mercado openapi: %w", err)
	}
	return v, nil
}

// Vars returns the base variables for a run against baseURL.
func Vars(baseURL string) map[string]string {
	return map[string]string{BaseURLVar: strings.TrimRight(baseURL, "/")}
}

// Fixtures is the typed view of the identifiers a run captured. A zero field
// means the producing step did not pass.
type Fixtures struct {
	MarketID    int
	FruitID     int
	VegetableID int
}

// FixturesFrom reads the captured identifiers out of a suite result.
func FixturesFrom(res *executor.SuiteResult) (Fixtures, error) {
	var f Fixtures
	if res == nil {
		return f, nil
	}
	for name, dst := range map[string]*int{
		MarketID:    &f.MarketID,
		FruitID:     &f.FruitID,
		VegetableID: &f.VegetableID,
	} {
		raw, ok := res.Fixtures[name]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Fixtures{}, fmt.Errorf("fixture %s: %q is not an integer id", name, raw)
		}
		*dst = n
	}
	return f, nil
}
