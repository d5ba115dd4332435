package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"mercado-qa/internal/contract"
	"mercado-qa/internal/fixture"
	"mercado-qa/internal/ir"
	"mercado-qa/internal/logger"
	"mercado-qa/internal/parser"
)

// DefaultTimeout bounds every request that does not set its own timeout.
const DefaultTimeout = 90 * time.Second

// ---- Results model ----

type SuiteResult struct {
	Name       string
	Passed     bool
	Scenarios  []ScenarioResult
	Fixtures   map[string]string // captured values at the end of a shared run
	DurationMs float64
}

type ScenarioResult struct {
	Name        string
	Passed      bool
	TeardownRan bool
	Steps       []StepResult
	DurationMs  float64
}

type StepResult struct {
	Name       string
	Passed     bool
	Skipped    bool // not sent: a fixture it depends on was never captured
	StatusCode int
	Errors     []string
	DurationMs float64
	Captured   map[string]string

	Method      string
	URL         string
	ReqHeaders  map[string]string
	ReqBody     string
	RespHeaders map[string][]string
	RespBody    string
}

// Sink is the reporting collaborator. Begin is called before the first
// request, Step after every step and End once the suite result is final.
type Sink interface {
	Begin(suite string)
	Step(scenario string, st StepResult)
	End(res *SuiteResult) error
}

// ---- Runner ----

type Runner struct {
	httpClient *http.Client
	baseVars   map[string]string
	timeout    time.Duration
	seed       int64
	limiter    *rate.Limiter

	contractV   *contract.Validator
	contractAll bool
	mu          sync.Mutex
	covered     map[string]map[string]bool // method -> pathTemplate -> true

	parallel int
	failFast bool

	sinkMu sync.Mutex
	sinks  []Sink

	log *logger.Entry
}

func New() *Runner {
	return NewWithVars(nil)
}

func NewWithVars(vars map[string]string) *Runner {
	tr := &http.Transport{
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &Runner{
		httpClient: &http.Client{Transport: tr},
		baseVars:   clone(vars),
		timeout:    DefaultTimeout,
		parallel:   1,
		log:        logger.GetLogger().WithComponent("executor"),
	}
}

func (r *Runner) WithContract(v *contract.Validator) *Runner {
	if r.covered == nil {
		r.covered = map[string]map[string]bool{}
	}
	r.contractV = v
	return r
}

// WithContractAll validates every response against the contract, not only
// steps that ask for it.
func (r *Runner) WithContractAll(b bool) *Runner { r.contractAll = b; return r }

func (r *Runner) WithParallel(n int) *Runner {
	if n < 1 {
		n = 1
	}
	r.parallel = n
	return r
}

func (r *Runner) WithFailFast(b bool) *Runner { r.failFast = b; return r }

func (r *Runner) WithTimeout(d time.Duration) *Runner {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// WithRateLimit caps outgoing requests per second. Zero or less disables pacing.
func (r *Runner) WithRateLimit(rps float64) *Runner {
	if rps <= 0 {
		r.limiter = nil
		return r
	}
	r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	return r
}

// WithSeed fixes the generator seed; zero picks a random one.
func (r *Runner) WithSeed(seed int64) *Runner {
	r.seed = seed
	return r
}

// WithSink registers a reporting sink. Sinks are called in registration order.
func (r *Runner) WithSink(s Sink) *Runner {
	r.sinks = append(r.sinks, s)
	return r
}

func (r *Runner) WithHTTPClient(c *http.Client) *Runner {
	r.httpClient = c
	return r
}

// Covered returns a copy of the operations validated against the contract.
func (r *Runner) Covered() map[string]map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]bool, len(r.covered))
	for m, paths := range r.covered {
		out[m] = make(map[string]bool, len(paths))
		for p := range paths {
			out[m][p] = true
		}
	}
	return out
}

// ---- Suite execution ----

func clone(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RunSuite checks the fixture chain, then runs every scenario. Step failures
// are recorded in the result; the returned error is reserved for suites that
// cannot start and for sink failures.
func (r *Runner) RunSuite(ctx context.Context, suite *ir.TestSuite) (*SuiteResult, error) {
	if suite == nil {
		return nil, errors.New("nil suite")
	}

	known := make([]string, 0, len(r.baseVars))
	for k := range r.baseVars {
		known = append(known, k)
	}
	if err := parser.CheckChain(suite, known); err != nil {
		return nil, err
	}

	generated, err := fixture.Generate(suite.Generate, r.seed)
	if err != nil {
		return nil, err
	}
	base := clone(r.baseVars)
	if base == nil {
		base = map[string]string{}
	}
	for k, v := range generated {
		base[k] = v
	}
	producers := parser.Producers(suite)

	for _, s := range r.sinks {
		s.Begin(suite.Name)
	}

	startSuite := time.Now()
	res := &SuiteResult{Name: suite.Name, Passed: true, Scenarios: make([]ScenarioResult, len(suite.Scenarios))}

	parallel := r.parallel
	if r.failFast {
		parallel = 1
	}
	if parallel > 1 && !suite.Isolated {
		r.log.WithField("parallel", parallel).Warn("suite shares fixtures between scenarios; running sequentially")
		parallel = 1
	}

	var shared *fixture.Context
	if !suite.Isolated {
		shared = fixture.New(base)
	}
	contextFor := func() *fixture.Context {
		if shared != nil {
			return shared
		}
		return fixture.New(base)
	}

	if parallel <= 1 {
		for i, sc := range suite.Scenarios {
			scRes := r.runScenario(ctx, sc, contextFor(), producers)
			if !scRes.Passed {
				res.Passed = false
			}
			res.Scenarios[i] = scRes
			if r.failFast && !scRes.Passed {
				res.Scenarios = res.Scenarios[:i+1]
				break
			}
		}
	} else {
		r.runParallel(ctx, suite, parallel, base, producers, res)
	}

	if shared != nil {
		res.Fixtures = map[string]string{}
		for _, k := range shared.Captured() {
			res.Fixtures[k], _ = shared.Lookup(k)
		}
	}
	res.DurationMs = float64(time.Since(startSuite).Milliseconds())

	var sinkErrs []error
	for _, s := range r.sinks {
		if err := s.End(res); err != nil {
			sinkErrs = append(sinkErrs, err)
		}
	}
	if len(sinkErrs) > 0 {
		return res, fmt.Errorf("report: %w", errors.Join(sinkErrs...))
	}
	return res, nil
}

// runParallel is only used for isolated suites, where no fixture crosses a
// scenario boundary.
func (r *Runner) runParallel(ctx context.Context, suite *ir.TestSuite, parallel int, base map[string]string, producers map[string]string, res *SuiteResult) {
	type job struct {
		idx int
		sc  ir.Scenario
	}
	type result struct {
		idx int
		sc  ScenarioResult
	}

	jobs := make(chan job)
	results := make(chan result)

	for w := 0; w < parallel; w++ {
		go func() {
			for j := range jobs {
				results <- result{idx: j.idx, sc: r.runScenario(ctx, j.sc, fixture.New(base), producers)}
			}
		}()
	}
	go func() {
		for i, sc := range suite.Scenarios {
			jobs <- job{idx: i, sc: sc}
		}
		close(jobs)
	}()

	for collected := 0; collected < len(suite.Scenarios); collected++ {
		rx := <-results
		if !rx.sc.Passed {
			res.Passed = false
		}
		res.Scenarios[rx.idx] = rx.sc
	}
}

func (r *Runner) runScenario(ctx context.Context, sc ir.Scenario, fc *fixture.Context, producers map[string]string) ScenarioResult {
	for k, v := range fixture.Builtins() {
		fc.Set(k, v)
	}

	startSc := time.Now()
	scRes := ScenarioResult{Name: sc.Name, Passed: true}

	// Setup (best-effort)
	if err := r.runActions(ctx, sc.Setup, fc); err != nil {
		r.log.WithError(err).WithField("scenario", sc.Name).Warn("setup failed")
		scRes.Passed = false
	}

	for _, st := range sc.Steps {
		stepRes := r.runStep(ctx, st, fc, producers)
		logger.LogStepTiming(r.log, sc.Name, stepRes.Name, time.Duration(stepRes.DurationMs)*time.Millisecond, logger.Fields{
			"status": stepRes.StatusCode,
			"passed": stepRes.Passed,
		})
		if !stepRes.Passed {
			scRes.Passed = false
			r.log.WithFields(logger.Fields{
				"scenario": sc.Name,
				"step":     stepRes.Name,
				"errors":   stepRes.Errors,
			}).Warn("step failed")
		}
		scRes.Steps = append(scRes.Steps, stepRes)
		r.emit(sc.Name, stepRes)
	}

	if err := r.runActions(ctx, sc.Teardown, fc); err != nil {
		r.log.WithError(err).WithField("scenario", sc.Name).Warn("teardown failed")
	}
	scRes.TeardownRan = true
	scRes.DurationMs = float64(time.Since(startSc).Milliseconds())

	return scRes
}

func (r *Runner) runStep(ctx context.Context, st ir.Step, fc *fixture.Context, producers map[string]string) StepResult {
	stepRes := StepResult{Name: st.DisplayName(), Passed: true}

	// A fixture whose producer did not pass would put a bogus id in the
	// request; skip instead of sending it.
	for _, name := range fixture.Requirements(st) {
		producer, isFixture := producers[name]
		if !isFixture || fc.IsCaptured(name) {
			continue
		}
		stepRes.Errors = append(stepRes.Errors,
			fmt.Sprintf("dependency: fixture %q unset (producer %q did not pass)", name, producer))
	}
	if len(stepRes.Errors) > 0 {
		stepRes.Passed = false
		stepRes.Skipped = true
		stepRes.Method = strings.ToUpper(st.Request.Method)
		stepRes.URL = st.Request.URL
		return stepRes
	}

	req := fc.ExpandRequest(st.Request)

	// Capture request details for report
	stepRes.Method = req.Method
	stepRes.URL = req.URL
	stepRes.ReqHeaders = clone(req.Headers)
	stepRes.ReqBody = stringifyBody(req.Body)

	// Guard unresolved vars in URL (clear error instead of bad URL)
	if unresolved := fixture.Unresolved(req.URL); len(unresolved) > 0 {
		stepRes.Passed = false
		stepRes.Errors = append(stepRes.Errors,
			fmt.Sprintf("unresolved variables in URL: %s (define via --env/--var or use ${VAR|default})",
				strings.Join(unresolved, ", ")))
		return stepRes
	}

	startStep := time.Now()
	status, body, respHdrs, err := r.doRequest(ctx, req)
	stepRes.DurationMs = float64(time.Since(startStep).Milliseconds())

	stepRes.StatusCode = status
	stepRes.RespHeaders = respHdrs
	stepRes.RespBody = limitBody(body, 64<<10) // 64KB cap in report

	if err != nil {
		stepRes.Passed = false
		stepRes.Errors = append(stepRes.Errors, fmt.Sprintf("request error: %v", err))
		return stepRes
	}

	// Parse JSON body (best-effort) for expectations and captures
	var doc any
	if len(body) > 0 {
		_ = json.Unmarshal(body, &doc)
	}

	sawContract := false
	for _, exp := range st.Expect {
		if exp.Type == ir.ExpectContract {
			sawContract = true
		}
		ok, msg := r.evalExpectation(ctx, exp, status, doc, fc, req.Method, req.URL, respHdrs, body)
		if !ok {
			stepRes.Passed = false
			stepRes.Errors = append(stepRes.Errors, msg)
		}
	}
	if r.contractAll && r.contractV != nil && !sawContract {
		if ok, msg := r.checkContract(ctx, req.Method, req.URL, status, respHdrs, body); !ok {
			stepRes.Passed = false
			stepRes.Errors = append(stepRes.Errors, msg)
		}
	}

	// Captures only happen on a passing step, so a failed create leaves its
	// fixture unset and dependents are skipped.
	if stepRes.Passed && len(st.Capture) > 0 {
		names := make([]string, 0, len(st.Capture))
		for name := range st.Capture {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			path := st.Capture[name]
			v, ok := lookupPath(doc, path)
			if !ok {
				stepRes.Passed = false
				stepRes.Errors = append(stepRes.Errors, fmt.Sprintf("capture %s: %s not found", name, path))
				continue
			}
			s, err := scalarString(v)
			if err != nil {
				stepRes.Passed = false
				stepRes.Errors = append(stepRes.Errors, fmt.Sprintf("capture %s: %s: %v", name, path, err))
				continue
			}
			if err := fc.Capture(name, s, stepRes.Name); err != nil {
				stepRes.Passed = false
				stepRes.Errors = append(stepRes.Errors, fmt.Sprintf("capture %s: %v", name, err))
				continue
			}
			if stepRes.Captured == nil {
				stepRes.Captured = map[string]string{}
			}
			stepRes.Captured[name] = s
		}
	}

	return stepRes
}

func (r *Runner) runActions(ctx context.Context, acts []ir.Action, fc *fixture.Context) error {
	for _, a := range acts {
		if a.Request == nil {
			continue
		}
		_, _, _, err := r.doRequest(ctx, fc.ExpandRequest(*a.Request))
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) emit(scenario string, st StepResult) {
	r.sinkMu.Lock()
	defer r.sinkMu.Unlock()
	for _, s := range r.sinks {
		s.Step(scenario, st)
	}
}

// ---- small helpers ----

func stringifyBody(b any) string {
	if b == nil {
		return ""
	}
	switch x := b.(type) {
	case string:
		return x
	default:
		buf, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			raw, _ := json.Marshal(x)
			return string(raw)
		}
		return string(buf)
	}
}

func limitBody(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "\n...[truncated]..."
}
