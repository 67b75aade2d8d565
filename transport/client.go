package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/goliatone/go-productwebhook/core"
	"github.com/goliatone/go-productwebhook/security"
)

const (
	defaultKeepAlive           = 30 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultIdleConnTimeout     = 90 * time.Second
	defaultMaxIdleConns        = 16
)

type connectTimeoutKey struct{}

// WithConnectTimeout bounds the TCP connect phase of requests made with ctx
// by clients built with NewHTTPClient.
func WithConnectTimeout(ctx context.Context, timeout time.Duration) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return ctx
	}
	return context.WithValue(ctx, connectTimeoutKey{}, timeout)
}

func connectTimeoutFrom(ctx context.Context, fallback time.Duration) time.Duration {
	if ctx != nil {
		if timeout, ok := ctx.Value(connectTimeoutKey{}).(time.Duration); ok && timeout > 0 {
			return timeout
		}
	}
	return fallback
}

type ClientOptions struct {
	// Control runs against every resolved remote address before connecting.
	// Nil means security.DialGuard.
	Control func(network, address string, conn syscall.RawConn) error
	// AllowPrivateNetworks drops the default dial guard when Control is nil.
	AllowPrivateNetworks bool
	// MaxConnectTimeout applies when the request context carries no connect
	// timeout.
	MaxConnectTimeout time.Duration
	TLSConfig         *tls.Config
}

// NewHTTPClient returns a client that never follows redirects and never uses
// an environment proxy, so Control always sees the real destination. Private
// and reserved destinations are refused unless the options say otherwise.
func NewHTTPClient(opts ClientOptions) *http.Client {
	maxConnect := opts.MaxConnectTimeout
	if maxConnect <= 0 {
		maxConnect = core.DefaultMaxConnectTimeout
	}
	tlsConfig := opts.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsConfig = tlsConfig.Clone()
	}

	control := opts.Control
	if control == nil && !opts.AllowPrivateNetworks {
		control = security.DialGuard
	}

	base := net.Dialer{
		KeepAlive: defaultKeepAlive,
		Control:   control,
	}
	httpTransport := &http.Transport{
		Proxy: nil,
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			dialer := base
			dialer.Timeout = connectTimeoutFrom(ctx, maxConnect)
			return dialer.DialContext(ctx, network, address)
		},
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
		IdleConnTimeout:     defaultIdleConnTimeout,
		MaxIdleConns:        defaultMaxIdleConns,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{
		Transport: httpTransport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
