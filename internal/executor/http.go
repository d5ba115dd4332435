package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mercado-qa/internal/ir"
)

// doRequest sends one request and reads the full response. It never retries.
func (r *Runner) doRequest(ctx context.Context, req ir.Request) (int, []byte, map[string][]string, error) {
	tmo := time.Duration(req.TimeoutMs) * time.Millisecond
	if tmo <= 0 {
		tmo = r.timeout
	}
	cctx, cancel := context.WithTimeout(ctx, tmo)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(cctx); err != nil {
			return 0, nil, nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	isJSON := false
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("json marshal body: %w", err)
		}
		body = bytes.NewBuffer(buf)
		isJSON = true
	}

	httpReq, err := http.NewRequestWithContext(cctx, req.Method, req.URL, body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("new request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if isJSON && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, nil, fmt.Errorf("timeout after %s: %w", tmo, err)
		}
		return 0, nil, nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, data, resp.Header, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, data, resp.Header, nil
}
