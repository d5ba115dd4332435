package reporter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"mercado-qa/internal/executor"
	"mercado-qa/internal/logger"
)

// Console is a streaming sink: every step is logged as it finishes and a
// plain-text summary is written to Out when the suite ends.
type Console struct {
	Out io.Writer

	mu       sync.Mutex
	log      *logger.Entry
	failures []string
}

func NewConsole(out io.Writer) *Console {
	return &Console{Out: out, log: logger.GetLogger().WithComponent("reporter")}
}

func (c *Console) Begin(suite string) {
	c.mu.Lock()
	c.failures = nil
	c.mu.Unlock()
	c.log.WithField("suite", suite).Info("suite started")
}

func (c *Console) Step(scenario string, st executor.StepResult) {
	e := c.log.WithFields(logger.Fields{
		"scenario": scenario,
		"step":     st.Name,
		"status":   st.StatusCode,
	})
	switch {
	case st.Skipped:
		e.Warn("step skipped")
	case !st.Passed:
		e.Warn("step failed")
	default:
		e.Info("step passed")
	}
	if st.Passed {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range st.Errors {
		c.failures = append(c.failures, fmt.Sprintf("%s / %s: %s", scenario, st.Name, msg))
	}
	if len(st.Errors) == 0 {
		c.failures = append(c.failures, fmt.Sprintf("%s / %s: failed", scenario, st.Name))
	}
}

func (c *Console) End(res *executor.SuiteResult) error {
	var total, passed, skipped int
	for _, sc := range res.Scenarios {
		for _, st := range sc.Steps {
			total++
			switch {
			case st.Passed:
				passed++
			case st.Skipped:
				skipped++
			}
		}
	}
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}
	if c.Out == nil {
		return nil
	}

	if _, err := fmt.Fprintf(c.Out, "%s %s: %d/%d steps passed, %d skipped (%.0f ms)\n",
		status, res.Name, passed, total, skipped, res.DurationMs); err != nil {
		return err
	}

	keys := make([]string, 0, len(res.Fixtures))
	for k := range res.Fixtures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.Out, "  %s = %s\n", k, res.Fixtures[k])
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.failures {
		if _, err := fmt.Fprintf(c.Out, "  - %s\n", f); err != nil {
			return err
		}
	}
	return nil
}
