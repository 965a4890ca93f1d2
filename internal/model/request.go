package model

import (
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/luminahq/lumina/internal/errdef"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

var Methods = []Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodDelete,
	MethodPatch,
	MethodHead,
	MethodOptions,
}

// ParseMethod accepts any casing of a supported method.
func ParseMethod(s string) (Method, error) {
	upper := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range Methods {
		if m == upper {
			return m, nil
		}
	}
	return "", errdef.New(errdef.CodeValidation, "unknown method %q", s)
}

type Request struct {
	ID      string
	Name    string
	Method  Method
	URL     string
	Headers map[string]string
	Params  map[string]string
	Body    Body
	Auth    Auth
}

// NewRequest returns a GET request with no body and no auth.
func NewRequest(name string) *Request {
	if name == "" {
		name = "New Request"
	}
	return &Request{
		ID:      uuid.NewString(),
		Name:    name,
		Method:  MethodGet,
		Headers: map[string]string{},
		Params:  map[string]string{},
		Body:    NoBody{},
		Auth:    NoAuth{},
	}
}

// Clone returns a deep copy sharing the same id.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Headers = cloneMap(r.Headers)
	out.Params = cloneMap(r.Params)
	out.Body = cloneBody(r.Body)
	out.Auth = r.Auth
	if out.Auth == nil {
		out.Auth = NoAuth{}
	}
	return &out
}

// Duplicate is a deep copy with a fresh id and a "(Copy)" suffix.
func (r *Request) Duplicate() *Request {
	out := r.Clone()
	out.ID = uuid.NewString()
	out.Name = fmt.Sprintf("%s (Copy)", r.Name)
	return out
}

// HeaderValue looks up a header ignoring case.
func (r *Request) HeaderValue(name string) (string, bool) {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (r *Request) BodyKind() BodyKind {
	if r.Body == nil {
		return BodyNone
	}
	return r.Body.Kind()
}

func (r *Request) AuthKind() AuthKind {
	if r.Auth == nil {
		return AuthNone
	}
	return r.Auth.Kind()
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}
