package ir

// Expectation types (string constants for portability)
const (
	ExpectStatus   = "status"
	ExpectJSONPath = "jsonPath"
	ExpectSchema   = "schema"
	ExpectContract = "contract"
)

type TestSuite struct {
	Name    string `json:"name" yaml:"name"`
	OpenAPI string `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	// Isolated gives every scenario its own fixture context. Shared (the
	// default) threads one context through all scenarios in order.
	Isolated bool `json:"isolated,omitempty" yaml:"isolated,omitempty"`
	// Generate maps a variable name to a generator kind, resolved once per run.
	Generate  map[string]string `json:"generate,omitempty" yaml:"generate,omitempty"`
	Scenarios []Scenario        `json:"scenarios" yaml:"scenarios"`
}

type Scenario struct {
	Name     string   `json:"name" yaml:"name"`
	Env      string   `json:"env,omitempty" yaml:"env,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Setup    []Action `json:"setup,omitempty" yaml:"setup,omitempty"`
	Steps    []Step   `json:"steps" yaml:"steps"`
	Teardown []Action `json:"teardown,omitempty" yaml:"teardown,omitempty"`
}

type Action struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Request *Request `json:"request,omitempty" yaml:"request,omitempty"`
}

type Step struct {
	Name    string        `json:"name,omitempty" yaml:"name,omitempty"`
	Request Request       `json:"request" yaml:"request"`
	Expect  []Expectation `json:"expect,omitempty" yaml:"expect,omitempty"`
	// Capture maps a fixture name to a JSON path in the response body.
	Capture map[string]string `json:"capture,omitempty" yaml:"capture,omitempty"`
	// Requires lists fixture names the step depends on beyond those it
	// references through ${...}.
	Requires []string `json:"requires,omitempty" yaml:"requires,omitempty"`
}

type Request struct {
	Method    string            `yaml:"method"  json:"method"`
	URL       string            `yaml:"url"     json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
	Body      any               `yaml:"body"    json:"body"`
	TimeoutMs int               `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
}

type Expectation struct {
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Value  any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// DisplayName falls back to "METHOD url" for unnamed steps.
func (s Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Request.Method + " " + s.Request.URL
}
