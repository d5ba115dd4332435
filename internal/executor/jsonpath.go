package executor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// lookupPath evaluates a dotted JSON path such as $.novoMercado.id,
// $[0].nome or $.items[2].id against a decoded JSON document.
func lookupPath(doc any, path string) (any, bool) {
	if !strings.HasPrefix(path, "$") {
		return nil, false
	}
	cur := doc
	for _, seg := range splitPath(strings.TrimPrefix(path[1:], ".")) {
		field, indexes := seg, []int(nil)
		if i := strings.Index(seg, "["); i >= 0 {
			field = seg[:i]
			for _, raw := range strings.Split(strings.TrimSuffix(seg[i+1:], "]"), "][") {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return nil, false
				}
				indexes = append(indexes, n)
			}
		}
		if field != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[field]; !ok {
				return nil, false
			}
		}
		for _, n := range indexes {
			arr, ok := cur.([]any)
			if !ok || n < 0 || n >= len(arr) {
				return nil, false
			}
			cur = arr[n]
		}
	}
	return cur, true
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(p, ".") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scalarString renders a JSON value the way it would appear in a URL.
// Whole numbers never use exponent notation.
func scalarString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("value is null")
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
