package contract_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercado-qa/internal/contract"
	"mercado-qa/internal/executor"
	"mercado-qa/internal/ir"
)

const openapiYAML = `
openapi: 3.0.3
info: { title: Mercado API, version: "1.0.0" }
paths:
  /mercado:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                nome: { type: string }
                endereco: { type: string }
                cnpj: { type: string }
              required: [nome, endereco, cnpj]
      responses:
        "201":
          description: created
          content:
            application/json:
              schema:
                type: object
                required: [novoMercado]
                properties:
                  novoMercado:
                    type: object
                    required: [id, nome]
                    properties:
                      id: { type: integer }
                      nome: { type: string }
  /mercado/{id}:
    parameters:
      - { name: id, in: path, required: true, schema: { type: integer } }
    delete:
      responses:
        "200": { description: ok }
        "404": { description: not found }
`

func newServer(withContentType bool) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/mercado", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if withContentType {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"novoMercado": map[string]any{"id": 7, "nome": "Feira"},
		})
	})
	return httptest.NewServer(mux)
}

func createSuite(url string, status int) *ir.TestSuite {
	return &ir.TestSuite{
		Name: "Contract",
		Scenarios: []ir.Scenario{{
			Name: "Criar Mercado",
			Steps: []ir.Step{{
				Name: "POST /mercado",
				Request: ir.Request{
					Method:    http.MethodPost,
					URL:       url + "/mercado",
					Headers:   map[string]string{"Content-Type": "application/json"},
					Body:      map[string]any{"nome": "Feira", "endereco": "Rua A", "cnpj": "12345678901234"},
					TimeoutMs: 2000,
				},
				Expect: []ir.Expectation{
					{Type: ir.ExpectStatus, Target: "code", Value: status},
					{Type: ir.ExpectContract, Value: true},
				},
			}},
		}},
	}
}

func TestValidateResponse_MatchesTemplatedPath(t *testing.T) {
	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	op, err := v.ValidateResponse(context.Background(), http.MethodDelete,
		"http://mercado.local/mercado/42", http.StatusNotFound, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, contract.OpSig{Method: "DELETE", Path: "/mercado/{id}"}, op)
}

func TestValidateResponse_UndocumentedStatus(t *testing.T) {
	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	op, err := v.ValidateResponse(context.Background(), http.MethodDelete,
		"http://mercado.local/mercado/42", http.StatusTeapot, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DELETE /mercado/{id} -> 418")
	assert.Equal(t, "/mercado/{id}", op.Path, "route is reported even when validation fails")
}

func TestValidateResponse_UnknownRoute(t *testing.T) {
	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	op, err := v.ValidateResponse(context.Background(), http.MethodGet,
		"http://mercado.local/feira", http.StatusOK, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "route not found")
	assert.Zero(t, op)
}

func TestLoadFromBytes_RejectsInvalidDocument(t *testing.T) {
	_, err := contract.LoadFromBytes([]byte("openapi: 3.0.3\ninfo: {title: X}\npaths: {}\n"))
	require.Error(t, err)
}

func TestContract_ValidatesResponse_OK(t *testing.T) {
	srv := newServer(true)
	defer srv.Close()

	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	r := executor.New().WithContract(v)
	res, err := r.RunSuite(context.Background(), createSuite(srv.URL, 201))
	require.NoError(t, err)
	require.True(t, res.Passed, "suite should pass, got: %+v", res)
	assert.True(t, r.Covered()["POST"]["/mercado"])
}

func TestContract_StatusMismatch_Fails(t *testing.T) {
	srv := newServer(true)
	defer srv.Close()

	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	res, err := executor.New().WithContract(v).RunSuite(context.Background(), createSuite(srv.URL, 200))
	require.NoError(t, err)
	require.False(t, res.Passed)
	assert.Contains(t, res.Scenarios[0].Steps[0].Errors[0], "status")
}

func TestContract_ResponseMissingContentType_Fails(t *testing.T) {
	srv := newServer(false)
	defer srv.Close()

	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	res, err := executor.New().WithContract(v).RunSuite(context.Background(), createSuite(srv.URL, 201))
	require.NoError(t, err)
	assert.False(t, res.Passed, "missing response Content-Type must break the contract")
}

func TestContract_UndocumentedStatusFailsStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"erro interno"}`))
	}))
	defer srv.Close()

	v, err := contract.LoadFromBytes([]byte(openapiYAML))
	require.NoError(t, err)

	r := executor.New().WithContract(v)
	res, err := r.RunSuite(context.Background(), createSuite(srv.URL, http.StatusInternalServerError))
	require.NoError(t, err)
	require.False(t, res.Passed, "a 500 the document does not list must fail the contract")

	st := res.Scenarios[0].Steps[0]
	require.Len(t, st.Errors, 1, "only the contract check fails: %v", st.Errors)
	assert.Contains(t, st.Errors[0], "contract: POST /mercado -> 500")
	assert.True(t, r.Covered()["POST"]["/mercado"], "the reached operation still counts as covered")
}
