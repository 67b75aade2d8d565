package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-productwebhook/core"
)

const defaultRequestTimeout = 30 * time.Second

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is one webhook POST.
type Request struct {
	URL     string
	Body    []byte
	Headers map[string]string
	// Timeout bounds the whole exchange; ConnectTimeout only the dial.
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// MaxResponseBodyBytes overrides the adapter limit when positive.
	MaxResponseBodyBytes int64
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Truncated is set when the body exceeded the read limit.
	Truncated bool
	Duration  time.Duration
}

// RESTAdapter posts JSON documents. It never follows redirects when built on
// NewHTTPClient.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = NewHTTPClient(ClientOptions{})
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: core.DefaultMaxResponseBodyBytes,
	}
}

// Post sends one request and returns whatever status the server answered
// with; interpreting the status is left to the caller. Errors are returned
// only when no complete response was received.
func (a *RESTAdapter) Post(ctx context.Context, req Request) (Response, error) {
	if a == nil || a.Client == nil {
		return Response{}, failure(nil, goerrors.CategoryInternal,
			"transport: rest adapter requires an http client", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := parseTarget(req.URL)
	if err != nil {
		return Response{}, err
	}
	redacted := map[string]any{"url": core.RedactURL(target.String())}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(WithConnectTimeout(ctx, req.ConnectTimeout), timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(req.Body))
	if err != nil {
		return Response{}, failure(err, goerrors.CategoryBadInput, "transport: build http request", redacted)
	}
	setHeaders(httpReq.Header, a.DefaultHeaders)
	setHeaders(httpReq.Header, req.Headers)

	started := time.Now()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return Response{Duration: time.Since(started)},
			failure(err, goerrors.CategoryExternal, "transport: execute http request", redacted)
	}
	defer httpRes.Body.Close()

	limit := req.MaxResponseBodyBytes
	if limit <= 0 {
		limit = a.MaxResponseBodyBytes
	}
	if limit <= 0 {
		limit = core.DefaultMaxResponseBodyBytes
	}
	res := Response{StatusCode: httpRes.StatusCode, Header: httpRes.Header.Clone()}
	res.Body, res.Truncated, err = readLimited(httpRes.Body, limit)
	res.Duration = time.Since(started)
	if err != nil {
		return res, failure(err, goerrors.CategoryExternal, "transport: read response body", map[string]any{
			"url":         redacted["url"],
			"status_code": httpRes.StatusCode,
		})
	}
	return res, nil
}

func parseTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, failure(nil, goerrors.CategoryBadInput, "transport: request url is required", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, failure(err, goerrors.CategoryBadInput, "transport: invalid request url",
			map[string]any{"url": core.RedactURL(raw)})
	}
	return parsed, nil
}

func setHeaders(dst http.Header, src map[string]string) {
	for key, value := range src {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		dst.Set(key, strings.TrimSpace(value))
	}
}

// readLimited reads at most limit bytes and reports whether more were
// available.
func readLimited(body io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if int64(len(data)) > limit {
		return data[:limit], true, err
	}
	return data, false, err
}
