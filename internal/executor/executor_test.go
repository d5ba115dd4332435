package executor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercado-qa/internal/executor"
	"mercado-qa/internal/ir"
	"mercado-qa/internal/parser"
)

type hits struct {
	mu    sync.Mutex
	paths []string
}

func (h *hits) add(r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, r.Method+" "+r.URL.Path)
}

func (h *hits) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

// newMercadoServer answers POST /mercado with createStatus and serves GET
// /mercado/42 only, so a request built from an unset id gets a 404.
func newMercadoServer(createStatus int) (*httptest.Server, *hits, *int32) {
	h := &hits{}
	cleanupCount := new(int32)
	mux := http.NewServeMux()

	mux.HandleFunc("/mercado", func(w http.ResponseWriter, r *http.Request) {
		h.add(r)
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusUnsupportedMediaType)
				return
			}
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(createStatus)
			if createStatus == http.StatusCreated {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"message":     "Mercado criado com sucesso!",
					"novoMercado": map[string]any{"id": 42, "nome": in["nome"]},
				})
			}
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":1,"nome":"Feira","endereco":"Rua A","cnpj":"12345678901234"}]`))
		}
	})
	mux.HandleFunc("/mercado/", func(w http.ResponseWriter, r *http.Request) {
		h.add(r)
		if r.URL.Path == "/mercado/42" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":42,"nome":"Feira"}`))
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/cleanup", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(cleanupCount, 1)
		w.WriteHeader(http.StatusNoContent)
	})

	return httptest.NewServer(mux), h, cleanupCount
}

func chainedSuite() *ir.TestSuite {
	return &ir.TestSuite{
		Name:     "Mercado API",
		Generate: map[string]string{"mercadoNome": "company"},
		Scenarios: []ir.Scenario{
			{
				Name: "Mercado CRUD",
				Steps: []ir.Step{
					{
						Name: "Criar Mercado",
						Request: ir.Request{
							Method: http.MethodPost,
							URL:    "${baseUrl}/mercado",
							Body:   map[string]any{"nome": "${mercadoNome}", "endereco": "Rua A", "cnpj": "12345678901234"},
						},
						Expect: []ir.Expectation{
							{Type: ir.ExpectStatus, Value: 201},
							{Type: ir.ExpectJSONPath, Target: "$.novoMercado.nome", Value: "${mercadoNome}"},
						},
						Capture: map[string]string{"marketId": "$.novoMercado.id"},
					},
					{
						Name:    "Get Mercado por ID inexistente",
						Request: ir.Request{Method: http.MethodGet, URL: "${baseUrl}/mercado/777"},
						Expect:  []ir.Expectation{{Type: ir.ExpectStatus, Value: 404}},
					},
				},
			},
			{
				Name: "CRUD Produtos",
				Steps: []ir.Step{
					{
						Name:    "Get Mercado por ID",
						Request: ir.Request{Method: http.MethodGet, URL: "${baseUrl}/mercado/${marketId}"},
						Expect: []ir.Expectation{
							{Type: ir.ExpectStatus, Value: 200},
							{Type: ir.ExpectJSONPath, Target: "$.id", Value: "${marketId}"},
						},
					},
				},
			},
		},
	}
}

func TestExecutor_CaptureThreadsAcrossScenarios(t *testing.T) {
	srv, h, _ := newMercadoServer(http.StatusCreated)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := executor.NewWithVars(map[string]string{"baseUrl": srv.URL}).RunSuite(ctx, chainedSuite())
	if err != nil {
		t.Fatalf("RunSuite error: %v", err)
	}
	if !res.Passed {
		t.Fatalf("suite should pass, got %+v", res)
	}
	if got := res.Fixtures["marketId"]; got != "42" {
		t.Fatalf("marketId fixture = %q, want 42", got)
	}
	create := res.Scenarios[0].Steps[0]
	if create.Captured["marketId"] != "42" {
		t.Fatalf("step captured = %v", create.Captured)
	}
	want := []string{"POST /mercado", "GET /mercado/777", "GET /mercado/42"}
	if got := h.list(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("requests = %v, want %v", got, want)
	}
}

func TestExecutor_FailedProducerSkipsDependents(t *testing.T) {
	srv, h, _ := newMercadoServer(http.StatusInternalServerError)
	defer srv.Close()

	res, err := executor.NewWithVars(map[string]string{"baseUrl": srv.URL}).RunSuite(context.Background(), chainedSuite())
	if err != nil {
		t.Fatalf("RunSuite error: %v", err)
	}
	if res.Passed {
		t.Fatal("suite should fail when the market cannot be created")
	}

	create := res.Scenarios[0].Steps[0]
	if create.Passed || create.Skipped {
		t.Fatalf("create step: passed=%v skipped=%v", create.Passed, create.Skipped)
	}
	if !strings.Contains(strings.Join(create.Errors, "\n"), "status: got 500, want 201") {
		t.Fatalf("create errors = %v", create.Errors)
	}

	// Independent step still runs and passes.
	if !res.Scenarios[0].Steps[1].Passed {
		t.Fatalf("independent step should pass: %+v", res.Scenarios[0].Steps[1])
	}

	dep := res.Scenarios[1].Steps[0]
	if !dep.Skipped || dep.Passed {
		t.Fatalf("dependent step should be skipped: %+v", dep)
	}
	if !strings.Contains(dep.Errors[0], `fixture "marketId" unset (producer "Criar Mercado" did not pass)`) {
		t.Fatalf("dependency error = %q", dep.Errors[0])
	}
	if len(res.Fixtures) != 0 {
		t.Fatalf("no fixture should be captured, got %v", res.Fixtures)
	}
	for _, p := range h.list() {
		if strings.HasPrefix(p, "GET /mercado/0") || p == "GET /mercado/" {
			t.Fatalf("dependent step must not hit the server, saw %s", p)
		}
	}
	if got := len(h.list()); got != 2 {
		t.Fatalf("server hits = %d, want 2", got)
	}
}

func TestExecutor_BrokenChainRejectedBeforeRequests(t *testing.T) {
	srv, h, _ := newMercadoServer(http.StatusCreated)
	defer srv.Close()

	suite := chainedSuite()
	// Move the consumer ahead of its producer.
	suite.Scenarios[0], suite.Scenarios[1] = suite.Scenarios[1], suite.Scenarios[0]

	_, err := executor.NewWithVars(map[string]string{"baseUrl": srv.URL}).RunSuite(context.Background(), suite)
	if !errors.Is(err, parser.ErrBrokenChain) {
		t.Fatalf("want ErrBrokenChain, got %v", err)
	}
	if got := len(h.list()); got != 0 {
		t.Fatalf("no request should be sent, got %d", got)
	}
}

func TestExecutor_TeardownRunsOnFailure_AndIsolation(t *testing.T) {
	srv, _, cleanupCount := newMercadoServer(http.StatusCreated)
	defer srv.Close()

	cleanup := []ir.Action{{Name: "cleanup", Request: &ir.Request{Method: http.MethodPost, URL: srv.URL + "/cleanup", TimeoutMs: 1000}}}
	suite := &ir.TestSuite{
		Name:     "Failure path still tears down",
		Isolated: true,
		Scenarios: []ir.Scenario{
			{
				Name: "This one fails expectations",
				Steps: []ir.Step{{
					Request: ir.Request{Method: http.MethodGet, URL: srv.URL + "/mercado", TimeoutMs: 1000},
					Expect:  []ir.Expectation{{Type: ir.ExpectStatus, Target: "code", Value: 418}}, // will fail
				}},
				Teardown: cleanup,
			},
			{
				Name: "This one passes and also tears down",
				Steps: []ir.Step{{
					Request: ir.Request{Method: http.MethodGet, URL: srv.URL + "/mercado/42", TimeoutMs: 1000},
					Expect:  []ir.Expectation{{Type: ir.ExpectStatus, Target: "code", Value: 200}},
				}},
				Teardown: cleanup,
			},
		},
	}

	res, err := executor.New().RunSuite(context.Background(), suite)
	if err != nil {
		t.Fatalf("RunSuite error: %v", err)
	}
	if res.Passed {
		t.Fatalf("suite should fail because one scenario fails: %+v", res)
	}
	if got := atomic.LoadInt32(cleanupCount); got != 2 {
		t.Fatalf("cleanup count = %d, want 2", got)
	}

	var passed, failed int
	for _, sc := range res.Scenarios {
		if !sc.TeardownRan {
			t.Fatalf("teardown flag missing on %s", sc.Name)
		}
		if sc.Passed {
			passed++
		} else {
			failed++
		}
	}
	if passed != 1 || failed != 1 {
		t.Fatalf("want 1 passed and 1 failed scenario, got passed=%d failed=%d", passed, failed)
	}
}

func TestExecutor_TimeoutFailsStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	suite := &ir.TestSuite{
		Name: "slow",
		Scenarios: []ir.Scenario{{
			Name: "slow",
			Steps: []ir.Step{
				{Request: ir.Request{Method: http.MethodGet, URL: srv.URL}, Expect: []ir.Expectation{{Type: ir.ExpectStatus, Value: 200}}},
				{Request: ir.Request{Method: http.MethodGet, URL: srv.URL, TimeoutMs: 2000}, Expect: []ir.Expectation{{Type: ir.ExpectStatus, Value: 200}}},
			},
		}},
	}

	res, err := executor.New().WithTimeout(50*time.Millisecond).RunSuite(context.Background(), suite)
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	first, second := res.Scenarios[0].Steps[0], res.Scenarios[0].Steps[1]
	if first.Passed || !strings.Contains(strings.Join(first.Errors, " "), "timeout after 50ms") {
		t.Fatalf("first step should time out: %+v", first.Errors)
	}
	if !second.Passed {
		t.Fatalf("per-request timeout should override the runner default: %+v", second.Errors)
	}
}

func TestExecutor_SchemaExpectation(t *testing.T) {
	var body atomic.Value
	body.Store(`[{"id":1,"nome":"Feira","endereco":"Rua A","cnpj":"12345678901234"}]`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body.Load().(string)))
	}))
	defer srv.Close()

	schema := map[string]any{
		"type": "array",
		"items": map[string]any{
			"properties": map[string]any{
				"endereco": map[string]any{"type": "string"},
				"id":       map[string]any{"type": "number"},
				"nome":     map[string]any{"type": "string"},
			},
			"required": []any{"cnpj", "endereco", "id", "nome"},
		},
	}
	suite := &ir.TestSuite{
		Name: "schema",
		Scenarios: []ir.Scenario{{
			Name: "Get Mercados",
			Steps: []ir.Step{{
				Request: ir.Request{Method: http.MethodGet, URL: srv.URL},
				Expect: []ir.Expectation{
					{Type: ir.ExpectStatus, Value: 200},
					{Type: ir.ExpectSchema, Value: schema},
					{Type: ir.ExpectJSONPath, Target: "$[0].id", Value: 1},
				},
			}},
		}},
	}

	res, err := executor.New().RunSuite(context.Background(), suite)
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	if !res.Passed {
		t.Fatalf("valid listing should pass: %+v", res.Scenarios[0].Steps[0].Errors)
	}

	body.Store(`[{"id":1,"nome":"Feira","endereco":"Rua A"}]`)
	res, err = executor.New().RunSuite(context.Background(), suite)
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	st := res.Scenarios[0].Steps[0]
	if st.Passed {
		t.Fatal("listing without cnpj should fail the schema")
	}
	if !strings.HasPrefix(st.Errors[0], "schema:") {
		t.Fatalf("errors = %v", st.Errors)
	}
}

func TestExecutor_CaptureMissingPathFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	suite := &ir.TestSuite{
		Name: "capture",
		Scenarios: []ir.Scenario{{
			Name: "S",
			Steps: []ir.Step{{
				Name:    "Criar Fruta",
				Request: ir.Request{Method: http.MethodPost, URL: srv.URL, Body: map[string]any{"nome": "Kiwi", "valor": 20}},
				Expect:  []ir.Expectation{{Type: ir.ExpectStatus, Value: 201}},
				Capture: map[string]string{"fruitId": "$.product_item.id"},
			}},
		}},
	}

	res, err := executor.New().RunSuite(context.Background(), suite)
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}
	st := res.Scenarios[0].Steps[0]
	if st.Passed {
		t.Fatal("missing capture path should fail the step")
	}
	if st.Errors[0] != "capture fruitId: $.product_item.id not found" {
		t.Fatalf("errors = %v", st.Errors)
	}
	if _, ok := res.Fixtures["fruitId"]; ok {
		t.Fatal("fruitId must stay unset")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Begin(suite string) { s.add("begin " + suite) }
func (s *recordingSink) Step(scenario string, st executor.StepResult) {
	s.add("step " + scenario + "/" + st.Name)
}
func (s *recordingSink) End(res *executor.SuiteResult) error {
	s.add("end " + res.Name)
	return nil
}
func (s *recordingSink) add(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func TestExecutor_SinkLifecycle(t *testing.T) {
	srv, _, _ := newMercadoServer(http.StatusCreated)
	defer srv.Close()

	sink := &recordingSink{}
	_, err := executor.NewWithVars(map[string]string{"baseUrl": srv.URL}).
		WithSink(sink).
		RunSuite(context.Background(), chainedSuite())
	if err != nil {
		t.Fatalf("RunSuite: %v", err)
	}

	want := []string{
		"begin Mercado API",
		"step Mercado CRUD/Criar Mercado",
		"step Mercado CRUD/Get Mercado por ID inexistente",
		"step CRUD Produtos/Get Mercado por ID",
		"end Mercado API",
	}
	if strings.Join(sink.events, "|") != strings.Join(want, "|") {
		t.Fatalf("events = %v, want %v", sink.events, want)
	}
}
