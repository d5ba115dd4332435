package executor

import (
	"context"
	"fmt"
	"strings"

	"mercado-qa/internal/contract"
	"mercado-qa/internal/fixture"
	"mercado-qa/internal/ir"
)

func (r *Runner) evalExpectation(
	ctx context.Context,
	exp ir.Expectation,
	status int,
	doc any,
	fc *fixture.Context,
	method string,
	url string,
	respHeaders map[string][]string,
	rawBody []byte,
) (bool, string) {
	switch exp.Type {
	case ir.ExpectStatus:
		want, ok := exp.Value.(int)
		if !ok {
			if f, fok := exp.Value.(float64); fok {
				want = int(f)
				ok = true
			}
		}
		if !ok {
			return false, "status expectation has non-integer value"
		}
		if status != want {
			return false, fmt.Sprintf("status: got %d, want %d", status, want)
		}
		return true, ""

	case ir.ExpectJSONPath:
		got, ok := lookupPath(doc, exp.Target)
		if !ok {
			return false, fmt.Sprintf("jsonPath: %s not found", exp.Target)
		}
		want := exp.Value
		if ws, ok := want.(string); ok {
			want = fc.Expand(ws)
		}
		if gs, ok := got.(string); ok {
			if gs != want {
				return false, fmt.Sprintf("jsonPath %s: got %v, want %v", exp.Target, gs, want)
			}
			return true, ""
		}
		if gotS, err := scalarString(got); err == nil && gotS == fmt.Sprint(want) {
			return true, ""
		}
		return false, fmt.Sprintf("jsonPath %s: got %v, want %v", exp.Target, got, want)

	case ir.ExpectSchema:
		if err := contract.ValidateSchema(exp.Value, rawBody); err != nil {
			return false, fmt.Sprintf("schema: %s", firstLine(err.Error()))
		}
		return true, ""

	case ir.ExpectContract:
		if r.contractV == nil {
			return false, "contract: requested but no OpenAPI document configured"
		}
		return r.checkContract(ctx, method, url, status, respHeaders, rawBody)

	default:
		return false, fmt.Sprintf("unknown expectation type: %s", exp.Type)
	}
}

// checkContract validates one response and records the matched operation as covered.
func (r *Runner) checkContract(ctx context.Context, method, url string, status int, hdrs map[string][]string, body []byte) (bool, string) {
	op, err := r.contractV.ValidateResponse(ctx, method, url, status, hdrs, body)
	if op.Path != "" {
		r.mu.Lock()
		if r.covered == nil {
			r.covered = map[string]map[string]bool{}
		}
		if r.covered[op.Method] == nil {
			r.covered[op.Method] = map[string]bool{}
		}
		r.covered[op.Method][op.Path] = true
		r.mu.Unlock()
	}
	if err != nil {
		return false, fmt.Sprintf("contract: %s", firstLine(err.Error()))
	}
	return true, ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
