package fixture

import (
	"regexp"
	"sort"
	"strings"

	"mercado-qa/internal/ir"
)

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Expand replaces ${KEY} and ${KEY|default}. A missing key without a default
// is left intact so the caller can report it.
func (c *Context) Expand(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		key, def, _ := splitRef(m[2 : len(m)-1])
		if v, ok := c.Lookup(key); ok && v != "" {
			return v
		}
		if def != "" {
			return def
		}
		return m
	})
}

// ExpandValue returns a copy of a decoded JSON/YAML value with every string expanded.
func (c *Context) ExpandValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return c.Expand(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = c.ExpandValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = c.ExpandValue(x[i])
		}
		return out
	default:
		return v
	}
}

// ExpandRequest returns a copy of rq with URL, headers and body expanded.
func (c *Context) ExpandRequest(rq ir.Request) ir.Request {
	rq.URL = c.Expand(rq.URL)
	if rq.Headers != nil {
		hdrs := make(map[string]string, len(rq.Headers))
		for k, v := range rq.Headers {
			hdrs[k] = c.Expand(v)
		}
		rq.Headers = hdrs
	}
	rq.Body = c.ExpandValue(rq.Body)
	rq.Method = strings.ToUpper(rq.Method)
	return rq
}

// Unresolved lists ${KEY} references that have no default.
func Unresolved(s string) []string {
	var out []string
	for _, m := range varPattern.FindAllStringSubmatch(s, -1) {
		if _, _, hasDef := splitRef(m[1]); hasDef {
			continue
		}
		out = append(out, "${"+m[1]+"}")
	}
	return out
}

// Requirements returns the names a step cannot run without: every ${KEY}
// without a default in its request and expectations, plus st.Requires.
func Requirements(st ir.Step) []string {
	set := map[string]bool{}
	for _, r := range st.Requires {
		set[r] = true
	}
	collect := func(s string) {
		for _, m := range varPattern.FindAllStringSubmatch(s, -1) {
			if key, _, hasDef := splitRef(m[1]); !hasDef {
				set[key] = true
			}
		}
	}
	collect(st.Request.URL)
	for _, v := range st.Request.Headers {
		collect(v)
	}
	walkStrings(st.Request.Body, collect)
	for _, e := range st.Expect {
		walkStrings(e.Value, collect)
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func walkStrings(v any, fn func(string)) {
	switch x := v.(type) {
	case string:
		fn(x)
	case map[string]any:
		for _, vv := range x {
			walkStrings(vv, fn)
		}
	case []any:
		for _, vv := range x {
			walkStrings(vv, fn)
		}
	}
}

func splitRef(inner string) (key, def string, hasDef bool) {
	if i := strings.Index(inner, "|"); i >= 0 {
		return inner[:i], inner[i+1:], true
	}
	return inner, "", false
}
