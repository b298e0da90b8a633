// Package network provides the shared HTTP client used to fetch manifests.
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anisan-cli/adplay/constant"
)

// Client is shared across the application. Request deadlines come from the
// caller's context, the client timeout only bounds stuck transfers.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: &userAgentTransport{base: newTransport()},
}

// newTransport initializes a tuned http.Transport with pool and timeout parameters.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 20
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 15 * time.Second
	t.ExpectContinueTimeout = time.Second
	return t
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", constant.UserAgent)
	}
	return t.base.RoundTrip(req)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Get fetches url and returns the response body. The caller closes it.
func Get(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	return resp.Body, nil
}
