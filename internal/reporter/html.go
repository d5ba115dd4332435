package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"strings"

	"mercado-qa/internal/executor"
)

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"ms":     func(v float64) string { return fmt.Sprintf("%.0f ms", v) },
	"upper":  strings.ToUpper,
	"kv":     kvBlock,
	"hdrs":   hdrBlock,
	"pretty": prettyJSON,
	"inc":    func(i int) int { return i + 1 },
}).Parse(`<!doctype html><html lang="en"><head><meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>mercado-qa report: {{.Name}}</title>
<style>
:root{--ok:#0a0;--bad:#b00;--skip:#b70;--muted:#666;--chip:#eee;--line:#e5e5e5}
body{font-family:system-ui,Segoe UI,Roboto,Arial,sans-serif;margin:24px;line-height:1.45}
h1{margin:0 0 12px} h2{margin:0 0 8px;font-size:1.05rem}
.summary{display:flex;gap:12px;align-items:center;margin:12px 0 18px}
.pass{color:var(--ok)} .fail{color:var(--bad)} .skip{color:var(--skip)}
.badge{display:inline-block;padding:2px 8px;border-radius:999px;background:var(--chip);font-size:.85rem}
.card{border:1px solid var(--line);border-radius:12px;padding:16px;margin:12px 0}
details>summary{cursor:pointer;list-style:none;padding:6px 0}
pre{background:#f8f8f8;padding:12px;border-radius:8px;overflow:auto;max-height:320px;margin:8px 0 0;white-space:pre-wrap}
.muted{color:var(--muted)} .small{font-size:.85rem}
table{border-collapse:collapse} td{padding:2px 12px 2px 0}
</style></head><body>
<h1>{{.Name}}</h1>
<div class="summary">
<div>Status: <strong class="{{if .Res.Passed}}pass">PASS{{else}}fail">FAIL{{end}}</strong></div>
<span class="badge">Duration: {{ms .Res.DurationMs}}</span>
<span class="badge">Scenarios: {{len .Res.Scenarios}}</span>
</div>
{{if .Fixtures}}<div class="card"><h2>Fixtures</h2><table>
{{range .Fixtures}}<tr><td class="muted">{{.Key}}</td><td>{{.Value}}</td></tr>{{end}}
</table></div>{{end}}
{{range .Res.Scenarios}}<div class="card">
<h2>{{.Name}} {{template "badge" .Passed}} <span class="badge">{{ms .DurationMs}}</span></h2>
{{range $i, $st := .Steps}}<details{{if not $st.Passed}} open{{end}}>
<summary>Step {{inc $i}} &middot; {{$st.Name}} &middot; {{upper $st.Method}} {{$st.URL}} &middot;
{{if $st.Skipped}}<span class="badge skip">SKIPPED</span>{{else}}status {{$st.StatusCode}} {{template "badge" $st.Passed}}{{end}}
<span class="badge">{{ms $st.DurationMs}}</span></summary>
{{if $st.Errors}}<pre>{{range $st.Errors}}{{.}}
{{end}}</pre>{{else}}<div class="small muted">No errors.</div>{{end}}
{{if $st.Captured}}<div class="small muted">Captured</div><pre>{{kv $st.Captured}}</pre>{{end}}
{{if not $st.Skipped}}<div class="small muted">Request</div>
{{if $st.ReqHeaders}}<pre>{{kv $st.ReqHeaders}}</pre>{{end}}
{{if $st.ReqBody}}<pre>{{pretty $st.ReqBody}}</pre>{{end}}
<div class="small muted">Response</div>
{{if $st.RespHeaders}}<pre>{{hdrs $st.RespHeaders}}</pre>{{end}}
{{if $st.RespBody}}<pre>{{pretty $st.RespBody}}</pre>{{end}}{{end}}
</details>
{{end}}</div>
{{end}}</body></html>
{{define "badge"}}{{if .}}<span class="badge pass">PASS</span>{{else}}<span class="badge fail">FAIL</span>{{end}}{{end}}`))

type fixtureRow struct{ Key, Value string }

type htmlView struct {
	Name     string
	Res      *executor.SuiteResult
	Fixtures []fixtureRow
}

func WriteHTML(w io.Writer, suiteName string, res *executor.SuiteResult) error {
	view := htmlView{Name: suiteName, Res: res}
	keys := make([]string, 0, len(res.Fixtures))
	for k := range res.Fixtures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		view.Fixtures = append(view.Fixtures, fixtureRow{Key: k, Value: res.Fixtures[k]})
	}

	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, view); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// WriteHTMLFromJSONPath renders the report from results.json so the HTML
// always matches what was written to disk.
func WriteHTMLFromJSONPath(w io.Writer, suiteName, resultsJSONPath string) error {
	data, err := os.ReadFile(resultsJSONPath)
	if err != nil {
		return fmt.Errorf("read results.json: %w", err)
	}
	var res executor.SuiteResult
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode results.json: %w", err)
	}
	return WriteHTML(w, suiteName, &res)
}

func kvBlock(h map[string]string) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, h[k])
	}
	return b.String()
}

func hdrBlock(h map[string][]string) string {
	flat := make(map[string]string, len(h))
	for k, v := range h {
		flat[k] = strings.Join(v, ", ")
	}
	return kvBlock(flat)
}

func prettyJSON(s string) string {
	var raw any
	if json.Unmarshal([]byte(s), &raw) != nil {
		return s
	}
	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return s
	}
	return string(out)
}
