package reporter_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercado-qa/internal/executor"
	"mercado-qa/internal/reporter"
)

func TestConsole_SummarisesFailures(t *testing.T) {
	var out bytes.Buffer
	c := reporter.NewConsole(&out)

	c.Begin("Mercado API")
	c.Step("Mercado CRUD", executor.StepResult{Name: "Criar Mercado", Passed: true, StatusCode: 201})
	c.Step("CRUD Produtos", executor.StepResult{
		Name:       "Adicionar Fruta",
		StatusCode: 404,
		Errors:     []string{"status: got 404, want 201"},
	})
	c.Step("CRUD Produtos", executor.StepResult{
		Name:    "Deletar Fruta",
		Skipped: true,
		Errors:  []string{`dependency: fixture "fruitId" unset`},
	})

	res := &executor.SuiteResult{
		Name:       "Mercado API",
		Fixtures:   map[string]string{"marketId": "9"},
		DurationMs: 12,
		Scenarios: []executor.ScenarioResult{
			{Name: "Mercado CRUD", Passed: true, Steps: []executor.StepResult{{Passed: true}}},
			{Name: "CRUD Produtos", Steps: []executor.StepResult{{}, {Skipped: true}}},
		},
	}
	require.NoError(t, c.End(res))

	got := out.String()
	assert.Contains(t, got, "FAIL Mercado API: 1/3 steps passed, 1 skipped")
	assert.Contains(t, got, "marketId = 9")
	assert.Contains(t, got, "CRUD Produtos / Adicionar Fruta: status: got 404, want 201")
	assert.Contains(t, got, `CRUD Produtos / Deletar Fruta: dependency: fixture "fruitId" unset`)
}

func TestConsole_BeginResetsFailures(t *testing.T) {
	var out bytes.Buffer
	c := reporter.NewConsole(&out)

	c.Begin("first")
	c.Step("S", executor.StepResult{Name: "x", Errors: []string{"boom"}})
	c.Begin("second")
	require.NoError(t, c.End(&executor.SuiteResult{Name: "second", Passed: true}))

	assert.NotContains(t, out.String(), "boom")
	assert.Contains(t, out.String(), "PASS second")
}
