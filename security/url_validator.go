package security

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-productwebhook/core"
)

const DefaultLookupTimeout = 2 * time.Second

var blacklistedSchemes = map[string]struct{}{
	"file":   {},
	"ftp":    {},
	"gopher": {},
	"dict":   {},
	"php":    {},
}

var blacklistedHosts = map[string]struct{}{
	"localhost":       {},
	"127.0.0.1":       {},
	"0.0.0.0":         {},
	"169.254.169.254": {},
	"::1":             {},
}

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupNetIP(ctx context.Context, network string, host string) ([]netip.Addr, error)
}

type ValidatorOption func(*URLValidator)

func WithResolver(resolver Resolver) ValidatorOption {
	return func(v *URLValidator) {
		if resolver != nil {
			v.resolver = resolver
		}
	}
}

func WithValidatorLogger(logger core.Logger) ValidatorOption {
	return func(v *URLValidator) {
		v.logger = logger
	}
}

func WithLookupTimeout(timeout time.Duration) ValidatorOption {
	return func(v *URLValidator) {
		if timeout > 0 {
			v.lookupTimeout = timeout
		}
	}
}

// URLValidator rejects webhook endpoints that could reach internal
// infrastructure. Rules run in a fixed order and the first failure wins.
type URLValidator struct {
	resolver      Resolver
	logger        core.Logger
	lookupTimeout time.Duration
}

func NewURLValidator(opts ...ValidatorOption) *URLValidator {
	validator := &URLValidator{
		resolver:      net.DefaultResolver,
		lookupTimeout: DefaultLookupTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(validator)
	}
	return validator
}

func (v *URLValidator) Validate(ctx context.Context, rawURL string) core.ValidationResult {
	if ctx == nil {
		ctx = context.Background()
	}
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return v.reject(ctx, core.ViolationEmptyURL, "security: webhook url is empty", core.LevelWarn, rawURL, "")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" || parsed.Hostname() == "" {
		return v.reject(ctx, core.ViolationMalformedURL, "security: webhook url is malformed", core.LevelWarn, trimmed, "")
	}

	host := normalizeHost(parsed.Hostname())
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "https" {
		level := core.LevelWarn
		if _, blocked := blacklistedSchemes[scheme]; blocked {
			level = core.LevelCritical
		}
		return v.reject(ctx, core.ViolationDisallowedScheme,
			fmt.Sprintf("security: scheme %q is not allowed, only https", scheme), level, trimmed, host)
	}

	if _, blocked := blacklistedHosts[host]; blocked {
		return v.reject(ctx, core.ViolationBlacklistedHost,
			fmt.Sprintf("security: host %q is blacklisted", host), core.LevelCritical, trimmed, host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivateOrReserved(addr) {
			return v.reject(ctx, core.ViolationPrivateIP,
				fmt.Sprintf("security: address %s is private or reserved", addr), core.LevelCritical, trimmed, host)
		}
		return core.ValidationPassed()
	}

	for _, addr := range v.resolve(ctx, host) {
		if IsPrivateOrReserved(addr) {
			return v.reject(ctx, core.ViolationPrivateIP,
				fmt.Sprintf("security: host %q resolves to private or reserved address %s", host, addr), core.LevelCritical, trimmed, host)
		}
	}
	return core.ValidationPassed()
}

// resolve returns nil when the lookup fails; an unresolvable host is not
// treated as private.
func (v *URLValidator) resolve(ctx context.Context, host string) []netip.Addr {
	if v.resolver == nil {
		return nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()
	addrs, err := v.resolver.LookupNetIP(lookupCtx, "ip", host)
	if err != nil {
		core.LogWithLevel(ctx, v.logger, core.LevelDebug, "webhook host lookup failed", map[string]any{
			"host":  host,
			"error": err.Error(),
		})
		return nil
	}
	return addrs
}

func (v *URLValidator) reject(
	ctx context.Context,
	reason core.ViolationReason,
	message string,
	level string,
	rawURL string,
	host string,
) core.ValidationResult {
	core.LogWithLevel(ctx, v.logger, level, "webhook url rejected", map[string]any{
		"url":    core.RedactURL(rawURL),
		"host":   host,
		"reason": string(reason),
		"error":  message,
	})
	return core.ValidationFailed(reason, message)
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "[")
	return strings.TrimSuffix(host, "]")
}

var _ core.URLValidator = (*URLValidator)(nil)
