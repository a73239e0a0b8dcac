package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"go.minekube.com/yggdrasil/pkg/version"
)

// Transport performs the http requests to the Yggdrasil servers.
//
// Both methods must return a *TransportError if the request failed or
// the response status code is not 2xx. Timeouts are the Transport's concern.
// A Transport must be safe for concurrent use.
type Transport interface {
	// Get performs a GET request and returns the response body.
	Get(ctx context.Context, url string) ([]byte, error)
	// Post posts the json body and returns the response body.
	Post(ctx context.Context, url string, jsonBody []byte) ([]byte, error)
}

// DefaultTimeout is the request timeout of a HTTPTransport created without http client.
const DefaultTimeout = 10 * time.Second

// maxResponseSize limits the size of a read response body.
const maxResponseSize = 1 << 20

// HTTPOptions to create a new HTTPTransport.
type HTTPOptions struct {
	// The http client to query the Yggdrasil servers.
	// If none is set, a new one is created.
	Client *http.Client
	// Timeout of the created client if Client is not set.
	// The default is DefaultTimeout.
	Timeout time.Duration
	// Header is added to every request.
	// The default is version.UserAgentHeader.
	Header http.Header
}

// HTTPTransport is the net/http based Transport.
type HTTPTransport struct {
	cli *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport returns a new HTTPTransport.
func NewHTTPTransport(options HTTPOptions) *HTTPTransport {
	cli := options.Client
	if cli == nil {
		timeout := options.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		cli = &http.Client{Timeout: timeout}
	} else {
		// don't modify the caller's client
		c := *cli
		cli = &c
	}
	header := options.Header
	if header == nil {
		header = version.UserAgentHeader()
	}
	cli.Transport = otelhttp.NewTransport(cli.Transport)
	cli.Transport = withHeader(cli.Transport, header)
	return &HTTPTransport{cli: cli}
}

func (t *HTTPTransport) Get(ctx context.Context, url string) ([]byte, error) {
	return t.do(ctx, http.MethodGet, url, nil)
}

func (t *HTTPTransport) Post(ctx context.Context, url string, jsonBody []byte) ([]byte, error) {
	return t.do(ctx, http.MethodPost, url, jsonBody)
}

func (t *HTTPTransport) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url,
			Err: fmt.Errorf("error creating request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := logr.FromContextOrDiscard(ctx).V(1).WithName("transport")
	start := time.Now()
	resp, err := t.cli.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Method: method, URL: url,
			Err: fmt.Errorf("error reading response body: %w", err)}
	}

	log.Info("request done",
		"method", method,
		"url", url,
		"statusCode", resp.StatusCode,
		"time", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		te := &TransportError{Method: method, URL: url, StatusCode: resp.StatusCode}
		if msg := bytes.TrimSpace(respBody); len(msg) != 0 {
			te.Err = errors.New(string(msg))
		}
		return respBody, te
	}
	return respBody, nil
}

func withHeader(rt http.RoundTripper, header http.Header) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return headerRoundTripper{Header: header, rt: rt}
}

type headerRoundTripper struct {
	http.Header
	rt http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range h.Header {
		req.Header[k] = v
	}
	return h.rt.RoundTrip(req)
}
