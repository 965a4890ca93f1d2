package httpclient

import (
	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/vars"
)

// Resolve returns a copy of req with placeholders substituted in the URL,
// header and param values, the active body payload and the credentials of the
// active auth kind. Keys are never resolved.
func Resolve(req *model.Request, variables map[string]string) *model.Request {
	out := req.Clone()
	out.URL = vars.Resolve(req.URL, variables)
	out.Headers = vars.ResolveMap(out.Headers, variables)
	out.Params = vars.ResolveMap(out.Params, variables)

	switch b := out.Body.(type) {
	case model.RawBody:
		out.Body = model.RawBody{Text: vars.Resolve(b.Text, variables)}
	case model.URLEncodedBody:
		out.Body = model.URLEncodedBody{Fields: vars.ResolveMap(b.Fields, variables)}
	case model.MultipartBody:
		out.Body = model.MultipartBody{Fields: vars.ResolveMap(b.Fields, variables)}
	}

	switch a := out.Auth.(type) {
	case model.BasicAuth:
		out.Auth = model.BasicAuth{
			Username: vars.Resolve(a.Username, variables),
			Password: vars.Resolve(a.Password, variables),
		}
	case model.BearerAuth:
		out.Auth = model.BearerAuth{Token: vars.Resolve(a.Token, variables)}
	case model.APIKeyAuth:
		out.Auth = model.APIKeyAuth{
			Name:     vars.Resolve(a.Name, variables),
			Value:    vars.Resolve(a.Value, variables),
			Location: a.Location,
		}
	}
	return out
}
