package contract

import (
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
)

// StatusChange is one operation whose documented status codes differ.
type StatusChange struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	A      []string `json:"a"`
	B      []string `json:"b"`
}

type DiffReport struct {
	Added         []OpSig        `json:"added"`          // present in B, not in A
	Removed       []OpSig        `json:"removed"`        // present in A, not in B
	ChangedStatus []StatusChange `json:"changed_status"` // same op, different status sets
}

// Empty reports whether the two documents expose the same operations and codes.
func (r DiffReport) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.ChangedStatus) == 0
}

func DiffDocs(a, b *openapi3.T) DiffReport {
	opsA, opsB := Operations(a), Operations(b)
	inA, inB := toSet(opsA), toSet(opsB)

	var rep DiffReport
	for _, op := range opsB {
		if !inA[op] {
			rep.Added = append(rep.Added, op)
		}
	}
	for _, op := range opsA {
		if !inB[op] {
			rep.Removed = append(rep.Removed, op)
			continue
		}
		as, bs := StatusCodes(a, op), StatusCodes(b, op)
		if !slices.Equal(as, bs) {
			rep.ChangedStatus = append(rep.ChangedStatus, StatusChange{
				Method: op.Method,
				Path:   op.Path,
				A:      as,
				B:      bs,
			})
		}
	}
	// Operations are already sorted, so every list above is too.
	return rep
}

func toSet(ops []OpSig) map[OpSig]bool {
	m := make(map[OpSig]bool, len(ops))
	for _, o := range ops {
		m[o] = true
	}
	return m
}
