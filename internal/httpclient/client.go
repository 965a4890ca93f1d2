package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/luminahq/lumina/internal/model"
	"github.com/luminahq/lumina/internal/telemetry"
)

const DefaultTimeout = 30 * time.Second

type Options struct {
	Timeout            time.Duration
	FollowRedirects    bool
	InsecureSkipVerify bool
	ProxyURL           string
}

// DefaultOptions: 30s timeout, redirects followed, certificates verified.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, FollowRedirects: true}
}

// Client executes stored requests. One Client keeps one cookie jar, so
// callers usually hold one per project.
type Client struct {
	jar         http.CookieJar
	opts        Options
	httpFactory func(Options) (*http.Client, error)
	telemetry   telemetry.Instrumenter
	projectID   string
	now         func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := &Client{jar: jar, opts: opts, telemetry: telemetry.Noop(), now: time.Now}
	c.httpFactory = c.buildHTTPClient
	return c
}

// SetHTTPFactory allows callers to override how http.Client instances are created.
// Passing nil restores the default factory.
func (c *Client) SetHTTPFactory(factory func(Options) (*http.Client, error)) {
	if factory == nil {
		factory = c.buildHTTPClient
	}
	c.httpFactory = factory
}

// SetTelemetry configures the instrumenter used to emit OpenTelemetry spans. Passing nil restores the no-op implementation.
func (c *Client) SetTelemetry(instr telemetry.Instrumenter) {
	if instr == nil {
		instr = telemetry.Noop()
	}
	c.telemetry = instr
}

// SetProjectID tags emitted spans with the owning project.
func (c *Client) SetProjectID(id string) {
	c.projectID = id
}

func (c *Client) Options() Options { return c.opts }

// Execute resolves placeholders on a copy of req, sends it and normalizes the
// outcome. It never returns an error: failures are reported in
// Response.Error with a zero status code. The template is not modified.
func (c *Client) Execute(
	ctx context.Context,
	req *model.Request,
	variables map[string]string,
) (resp *Response) {
	resp = &Response{Timestamp: c.now()}
	defer func() {
		if r := recover(); r != nil {
			*resp = Response{Timestamp: resp.Timestamp, Error: fmt.Sprintf("Unexpected error: %v", r)}
		}
	}()

	if req == nil {
		resp.Error = "Unexpected error: request is nil"
		return resp
	}
	resolved := Resolve(req, variables)

	httpReq, err := buildHTTPRequest(ctx, resolved)
	if err != nil {
		resp.Error = describeError(err)
		return resp
	}

	client, err := c.httpFactory(c.opts)
	if err != nil {
		resp.Error = describeError(err)
		return resp
	}

	spanCtx, span := c.telemetry.Start(httpReq.Context(), telemetry.RequestStart{
		Request:     resolved,
		HTTPRequest: httpReq,
		ProjectID:   c.projectID,
	})
	httpReq = httpReq.WithContext(spanCtx)

	var sendErr error
	defer func() {
		span.End(telemetry.RequestResult{
			Err:        sendErr,
			StatusCode: resp.StatusCode,
			Size:       resp.Size,
			Elapsed:    resp.Elapsed(),
		})
	}()

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	if err != nil {
		sendErr = err
		resp.Error = describeError(err)
		return resp
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	elapsed := time.Since(start)
	if err != nil {
		sendErr = err
		resp.Error = describeError(err)
		return resp
	}

	fillResponse(resp, httpResp, body, elapsed)
	return resp
}
