package contract

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type OpSig struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func (o OpSig) String() string { return o.Method + " " + o.Path }

// Operations lists every (method, path template) pair in doc, sorted by path then method.
func Operations(doc *openapi3.T) []OpSig {
	var out []OpSig
	if doc == nil || doc.Paths == nil {
		return out
	}
	for p, pi := range doc.Paths.Map() {
		if pi == nil {
			continue
		}
		for method := range pi.Operations() {
			out = append(out, OpSig{Method: strings.ToUpper(method), Path: p})
		}
	}
	sortOps(out)
	return out
}

// StatusCodes returns the documented response codes of op.
func StatusCodes(doc *openapi3.T, op OpSig) []string {
	var out []string
	if doc == nil || doc.Paths == nil {
		return out
	}
	pi := doc.Paths.Value(op.Path)
	if pi == nil {
		return out
	}
	o := pi.GetOperation(strings.ToUpper(op.Method))
	if o == nil || o.Responses == nil {
		return out
	}
	for code := range o.Responses.Map() {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func sortOps(ops []OpSig) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path == ops[j].Path {
			return ops[i].Method < ops[j].Method
		}
		return ops[i].Path < ops[j].Path
	})
}
