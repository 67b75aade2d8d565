package productwebhook

import (
	"crypto/tls"
	"net/netip"
	"time"

	"github.com/goliatone/go-productwebhook/adapters/gojob"
	"github.com/goliatone/go-productwebhook/core"
	"github.com/goliatone/go-productwebhook/security"
	"github.com/goliatone/go-productwebhook/transport"
	"github.com/goliatone/go-productwebhook/webhooks"

	"github.com/goliatone/go-job/queue"
)

type Config = core.Config

type DeliveryConfig = core.DeliveryConfig

type Option = core.Option

type Dispatcher = core.Dispatcher

type Record = core.Record
type Field = core.Field
type EndpointConfig = core.EndpointConfig
type DispatchReport = core.DispatchReport
type DeliveryOutcome = core.DeliveryOutcome
type QueueMessage = core.QueueMessage

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithConfigSource    = core.WithConfigSource
	WithRecordFilter    = core.WithRecordFilter
	WithSender          = core.WithSender
	WithPublisher       = core.WithPublisher
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewDispatcher(cfg Config, opts ...Option) (*Dispatcher, error) {
	return core.NewDispatcher(cfg, opts...)
}

// SetupOption tunes the delivery stack assembled by Setup.
type SetupOption func(*setupOptions)

type setupOptions struct {
	dispatcherOptions []core.Option
	senderOptions     []webhooks.SenderOption
	dnsResolver       security.Resolver
	allowedPrefixes   []netip.Prefix
	tlsConfig         *tls.Config
	enqueuer          queue.Enqueuer
}

func WithDispatcherOptions(opts ...Option) SetupOption {
	return func(o *setupOptions) {
		o.dispatcherOptions = append(o.dispatcherOptions, opts...)
	}
}

func WithSenderOptions(opts ...webhooks.SenderOption) SetupOption {
	return func(o *setupOptions) {
		o.senderOptions = append(o.senderOptions, opts...)
	}
}

// WithDNSResolver replaces the resolver used by endpoint validation.
func WithDNSResolver(resolver security.Resolver) SetupOption {
	return func(o *setupOptions) {
		o.dnsResolver = resolver
	}
}

// WithAllowedPrefixes lets the dial guard connect to the given networks even
// when they are private. Endpoint validation is unaffected.
func WithAllowedPrefixes(prefixes ...netip.Prefix) SetupOption {
	return func(o *setupOptions) {
		o.allowedPrefixes = append(o.allowedPrefixes, prefixes...)
	}
}

func WithTLSConfig(cfg *tls.Config) SetupOption {
	return func(o *setupOptions) {
		o.tlsConfig = cfg
	}
}

// WithQueue routes queue-mode stores through a go-job enqueuer.
func WithQueue(enqueuer queue.Enqueuer) SetupOption {
	return func(o *setupOptions) {
		o.enqueuer = enqueuer
	}
}

// Setup builds a Dispatcher wired to the default delivery stack: URL
// validation, a dial-guarded HTTPS client and the webhook sender. Options
// passed through WithDispatcherOptions win over the defaults, so a caller
// supplied sender or publisher replaces the built one.
func Setup(cfg Config, source core.ConfigSource, opts ...SetupOption) (*Dispatcher, error) {
	options := setupOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	base := []core.Option{core.WithConfigSource(source)}
	base = append(base, options.dispatcherOptions...)
	resolved, err := core.ResolveConfig(cfg, base...)
	if err != nil {
		return nil, err
	}
	_, logger, err := core.ResolveLogger(cfg, base...)
	if err != nil {
		return nil, err
	}

	validatorOpts := []security.ValidatorOption{security.WithValidatorLogger(logger)}
	if options.dnsResolver != nil {
		validatorOpts = append(validatorOpts, security.WithResolver(options.dnsResolver))
	}
	validator := security.NewURLValidator(validatorOpts...)

	client := transport.NewHTTPClient(transport.ClientOptions{
		Control:           security.NewDialGuard(options.allowedPrefixes...),
		MaxConnectTimeout: time.Duration(resolved.Delivery.MaxConnectTimeoutSeconds) * time.Second,
		TLSConfig:         options.tlsConfig,
	})
	adapter := transport.NewRESTAdapter(client)
	if resolved.Delivery.MaxResponseBodyBytes > 0 {
		adapter.MaxResponseBodyBytes = resolved.Delivery.MaxResponseBodyBytes
	}

	senderOpts := []webhooks.SenderOption{
		webhooks.WithSenderLogger(logger),
		webhooks.WithDeliveryConfig(resolved.Delivery),
	}
	senderOpts = append(senderOpts, options.senderOptions...)
	sender, err := webhooks.NewSender(validator, adapter, senderOpts...)
	if err != nil {
		return nil, err
	}

	dispatcherOpts := []core.Option{
		core.WithConfigSource(source),
		core.WithLogger(logger),
		core.WithSender(sender),
	}
	if options.enqueuer != nil {
		dispatcherOpts = append(dispatcherOpts, core.WithPublisher(gojob.NewPublisher(options.enqueuer)))
	}
	dispatcherOpts = append(dispatcherOpts, options.dispatcherOptions...)
	return core.NewDispatcher(cfg, dispatcherOpts...)
}
