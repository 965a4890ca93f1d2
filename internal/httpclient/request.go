package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/luminahq/lumina/internal/errdef"
	"github.com/luminahq/lumina/internal/model"
)

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// buildHTTPRequest turns an already resolved request into the wire request.
func buildHTTPRequest(ctx context.Context, req *model.Request) (*http.Request, error) {
	target, err := parseTarget(req.URL)
	if err != nil {
		return nil, err
	}

	headers := maps.Clone(req.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	params := maps.Clone(req.Params)
	if params == nil {
		params = map[string]string{}
	}
	basic := applyAuthentication(req.Auth, headers, params)

	body, contentType, err := prepareBody(req.Body, headers)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		q := target.Query()
		for _, k := range slices.Sorted(maps.Keys(params)) {
			q.Add(k, params[k])
		}
		target.RawQuery = q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), target.String(), body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "build request")
	}
	for name, value := range headers {
		httpReq.Header.Set(name, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if basic != nil {
		httpReq.SetBasicAuth(basic.Username, basic.Password)
	}
	return httpReq, nil
}

func parseTarget(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errdef.New(errdef.CodeValidation, "invalid URL %q: no URL supplied", raw)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeValidation, err, "invalid URL %q", raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errdef.New(errdef.CodeValidation, "invalid URL %q: no scheme or host supplied", raw)
	}
	return u, nil
}

// applyAuthentication mutates headers and params for bearer and api key auth.
// Basic credentials are returned for the transport to encode.
func applyAuthentication(auth model.Auth, headers, params map[string]string) *model.BasicAuth {
	switch a := auth.(type) {
	case model.BasicAuth:
		return &a
	case model.BearerAuth:
		if a.Token != "" {
			setHeader(headers, "Authorization", "Bearer "+a.Token)
		}
	case model.APIKeyAuth:
		if a.Name == "" || a.Value == "" {
			return nil
		}
		if a.Location == model.KeyInQuery {
			params[a.Name] = a.Value
		} else {
			setHeader(headers, a.Name, a.Value)
		}
	}
	return nil
}

// prepareBody returns the payload and, when the body kind dictates one, the
// Content-Type to send. Raw bodies only get a type when none was given.
func prepareBody(body model.Body, headers map[string]string) (io.Reader, string, error) {
	switch b := body.(type) {
	case model.RawBody:
		if b.Text == "" {
			return nil, "", nil
		}
		if _, ok := lookupHeader(headers, "Content-Type"); ok {
			return strings.NewReader(b.Text), "", nil
		}
		if json.Valid([]byte(b.Text)) {
			return strings.NewReader(b.Text), contentTypeJSON, nil
		}
		return strings.NewReader(b.Text), contentTypeText, nil
	case model.URLEncodedBody:
		form := url.Values{}
		for k, v := range b.Fields {
			form.Set(k, v)
		}
		deleteHeader(headers, "Content-Type")
		return strings.NewReader(form.Encode()), contentTypeForm, nil
	case model.MultipartBody:
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		for _, k := range slices.Sorted(maps.Keys(b.Fields)) {
			if err := writer.WriteField(k, b.Fields[k]); err != nil {
				return nil, "", errdef.Wrap(errdef.CodeUnknown, err, "write form field %s", k)
			}
		}
		if err := writer.Close(); err != nil {
			return nil, "", errdef.Wrap(errdef.CodeUnknown, err, "close multipart body")
		}
		deleteHeader(headers, "Content-Type")
		return buf, writer.FormDataContentType(), nil
	}
	return nil, "", nil
}

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func deleteHeader(headers map[string]string, name string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
}

func setHeader(headers map[string]string, name, value string) {
	deleteHeader(headers, name)
	headers[name] = value
}
