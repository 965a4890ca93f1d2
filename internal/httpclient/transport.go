package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"

	"github.com/luminahq/lumina/internal/errdef"
)

const maxRedirects = 10

func (c *Client) buildHTTPClient(opts Options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeConfig, err, "parse proxy url")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per settings
	}

	return &http.Client{
		Transport:     transport,
		Jar:           c.jar,
		Timeout:       opts.Timeout,
		CheckRedirect: redirectPolicy(opts.FollowRedirects),
	}, nil
}

func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	if !follow {
		return func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}
