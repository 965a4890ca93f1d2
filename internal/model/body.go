package model

import "github.com/luminahq/lumina/internal/errdef"

type BodyKind string

const (
	BodyNone       BodyKind = "none"
	BodyRaw        BodyKind = "raw"
	BodyURLEncoded BodyKind = "form_urlencoded"
	BodyMultipart  BodyKind = "form_data"
)

func ParseBodyKind(s string) (BodyKind, error) {
	switch k := BodyKind(s); k {
	case BodyNone, BodyRaw, BodyURLEncoded, BodyMultipart:
		return k, nil
	case "":
		return BodyNone, nil
	}
	return "", errdef.New(errdef.CodeValidation, "unknown body_type %q", s)
}

// Body is one of NoBody, RawBody, URLEncodedBody or MultipartBody.
type Body interface {
	Kind() BodyKind
	isBody()
}

type NoBody struct{}

type RawBody struct {
	Text string
}

type URLEncodedBody struct {
	Fields map[string]string
}

type MultipartBody struct {
	Fields map[string]string
}

func (NoBody) Kind() BodyKind         { return BodyNone }
func (RawBody) Kind() BodyKind        { return BodyRaw }
func (URLEncodedBody) Kind() BodyKind { return BodyURLEncoded }
func (MultipartBody) Kind() BodyKind  { return BodyMultipart }

func (NoBody) isBody()         {}
func (RawBody) isBody()        {}
func (URLEncodedBody) isBody() {}
func (MultipartBody) isBody()  {}

// FormFields returns the fields of a form body, or nil for other kinds.
func FormFields(b Body) map[string]string {
	switch v := b.(type) {
	case URLEncodedBody:
		return v.Fields
	case MultipartBody:
		return v.Fields
	}
	return nil
}

// NewBody builds the body for kind from whichever payload it uses.
func NewBody(kind BodyKind, raw string, fields map[string]string) Body {
	switch kind {
	case BodyRaw:
		return RawBody{Text: raw}
	case BodyURLEncoded:
		return URLEncodedBody{Fields: cloneMap(fields)}
	case BodyMultipart:
		return MultipartBody{Fields: cloneMap(fields)}
	}
	return NoBody{}
}

func cloneBody(b Body) Body {
	switch v := b.(type) {
	case URLEncodedBody:
		return URLEncodedBody{Fields: cloneMap(v.Fields)}
	case MultipartBody:
		return MultipartBody{Fields: cloneMap(v.Fields)}
	case nil:
		return NoBody{}
	}
	return b
}
