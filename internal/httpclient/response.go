package httpclient

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Response is the transport independent result of one execution. Either
// StatusCode is set and Error is empty, or Error is set and StatusCode is 0.
type Response struct {
	StatusCode  int               `json:"status_code"`
	StatusText  string            `json:"status_text"`
	Headers     map[string]string `json:"headers"`
	Body        string            `json:"body"`
	BodyBytes   []byte            `json:"-"`
	ContentType string            `json:"content_type"`
	ElapsedMS   float64           `json:"elapsed_ms"`
	Size        int               `json:"size_bytes"`
	URL         string            `json:"url,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Error       string            `json:"error,omitempty"`
}

func fillResponse(resp *Response, httpResp *http.Response, body []byte, elapsed time.Duration) {
	resp.StatusCode = httpResp.StatusCode
	resp.StatusText = reasonPhrase(httpResp)
	resp.Headers = flattenHeaders(httpResp.Header)
	resp.BodyBytes = body
	resp.Body = decodeBody(body)
	resp.ContentType = httpResp.Header.Get("Content-Type")
	resp.ElapsedMS = float64(elapsed) / float64(time.Millisecond)
	resp.Size = len(body)
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		resp.URL = httpResp.Request.URL.String()
	}
}

// reasonPhrase prefers the phrase the server sent over the canonical text.
func reasonPhrase(httpResp *http.Response) string {
	if _, phrase, ok := strings.Cut(httpResp.Status, " "); ok && phrase != "" {
		return phrase
	}
	return http.StatusText(httpResp.StatusCode)
}

// flattenHeaders joins repeated header values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func decodeBody(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), "�")
}

func (r *Response) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS * float64(time.Millisecond))
}

func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "application/json")
}

func (r *Response) IsXML() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.Contains(ct, "application/xml") || strings.Contains(ct, "text/xml")
}

func (r *Response) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}

func (r *Response) IsText() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/") || r.IsJSON() || r.IsXML()
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsError() bool {
	return r.Error != ""
}
