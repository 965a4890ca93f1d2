package model

import (
	"fmt"

	"github.com/luminahq/lumina/internal/errdef"
)

type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthBasic  AuthKind = "basic"
	AuthBearer AuthKind = "bearer"
	AuthAPIKey AuthKind = "api_key"
)

func ParseAuthKind(s string) (AuthKind, error) {
	switch k := AuthKind(s); k {
	case AuthNone, AuthBasic, AuthBearer, AuthAPIKey:
		return k, nil
	case "":
		return AuthNone, nil
	}
	return "", errdef.New(errdef.CodeValidation, "unknown auth_type %q", s)
}

type KeyLocation string

const (
	KeyInHeader KeyLocation = "header"
	KeyInQuery  KeyLocation = "query"
)

func ParseKeyLocation(s string) (KeyLocation, error) {
	switch l := KeyLocation(s); l {
	case KeyInHeader, KeyInQuery:
		return l, nil
	case "":
		return KeyInHeader, nil
	}
	return "", errdef.New(errdef.CodeValidation, "unknown auth_api_key_location %q", s)
}

// Auth is one of NoAuth, BasicAuth, BearerAuth or APIKeyAuth.
type Auth interface {
	Kind() AuthKind
	isAuth()
}

type NoAuth struct{}

type BasicAuth struct {
	Username string
	Password string
}

type BearerAuth struct {
	Token string
}

type APIKeyAuth struct {
	Name     string
	Value    string
	Location KeyLocation
}

func (NoAuth) Kind() AuthKind     { return AuthNone }
func (BasicAuth) Kind() AuthKind  { return AuthBasic }
func (BearerAuth) Kind() AuthKind { return AuthBearer }
func (APIKeyAuth) Kind() AuthKind { return AuthAPIKey }

func (NoAuth) isAuth()     {}
func (BasicAuth) isAuth()  {}
func (BearerAuth) isAuth() {}
func (APIKeyAuth) isAuth() {}

// Describe renders a short summary suitable for previews. Tokens are cut.
func Describe(a Auth) string {
	switch v := a.(type) {
	case BasicAuth:
		return "Basic Auth: " + orNone(v.Username)
	case BearerAuth:
		return "Bearer Token: " + orNone(preview(v.Token, 20))
	case APIKeyAuth:
		loc := "Header"
		if v.Location == KeyInQuery {
			loc = "Query Param"
		}
		return fmt.Sprintf("API Key (%s): %s", loc, orNone(v.Name))
	}
	return "No authentication"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
