package contract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Validator matches Mercado responses to the operation they answer and
// checks status, headers and body against it.
type Validator struct {
	doc    *openapi3.T
	router routers.Router
	opts   *openapi3filter.Options
}

func LoadFromFile(path string) (*Validator, error) {
	return load(func(l *openapi3.Loader) (*openapi3.T, error) { return l.LoadFromFile(path) })
}

func LoadFromBytes(b []byte) (*Validator, error) {
	return load(func(l *openapi3.Loader) (*openapi3.T, error) { return l.LoadFromData(b) })
}

func load(read func(*openapi3.Loader) (*openapi3.T, error)) (*Validator, error) {
	doc, err := read(&openapi3.Loader{IsExternalRefsAllowed: true})
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	r, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return &Validator{
		doc:    doc,
		router: r,
		// A status the operation does not list is a contract break, not a pass.
		opts: &openapi3filter.Options{IncludeResponseStatus: true},
	}, nil
}

func (v *Validator) Doc() *openapi3.T { return v.doc }

// ValidateResponse returns the matched operation even when the response breaks
// it, so coverage counts every operation the suite reached.
func (v *Validator) ValidateResponse(
	ctx context.Context,
	method string,
	rawURL string,
	status int,
	header map[string][]string,
	body []byte,
) (OpSig, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return OpSig{}, fmt.Errorf("parse url: %w", err)
	}
	req := &http.Request{Method: method, URL: u, Header: http.Header(header)}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return OpSig{}, fmt.Errorf("route not found: %s %s: %w", method, u.Path, err)
	}
	op := OpSig{Method: route.Method, Path: route.Path}

	in := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options:    v.opts,
		},
		Status:  status,
		Header:  req.Header,
		Body:    io.NopCloser(bytes.NewReader(body)),
		Options: v.opts,
	}
	if err := openapi3filter.ValidateResponse(ctx, in); err != nil {
		return op, fmt.Errorf("%s %s -> %d: %w", op.Method, op.Path, status, err)
	}
	return op, nil
}
