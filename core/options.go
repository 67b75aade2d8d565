package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type dispatcherBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	configSource    ConfigSource
	filter          RecordFilter
	sender          WebhookSender
	publisher       Publisher
}

type Option func(*dispatcherBuilder)

func WithLogger(logger Logger) Option {
	return func(b *dispatcherBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *dispatcherBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *dispatcherBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *dispatcherBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *dispatcherBuilder) {
		b.optionsResolver = resolver
	}
}

func WithConfigSource(source ConfigSource) Option {
	return func(b *dispatcherBuilder) {
		b.configSource = source
	}
}

func WithRecordFilter(filter RecordFilter) Option {
	return func(b *dispatcherBuilder) {
		b.filter = filter
	}
}

func WithSender(sender WebhookSender) Option {
	return func(b *dispatcherBuilder) {
		b.sender = sender
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(b *dispatcherBuilder) {
		b.publisher = publisher
	}
}

func defaultDispatcherBuilder(runtime Config) dispatcherBuilder {
	return dispatcherBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func buildDispatcherOptions(cfg Config, options ...Option) dispatcherBuilder {
	builder := defaultDispatcherBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.filter == nil {
		builder.filter = NewDataFilter()
	}
	return builder
}

// ResolveConfig applies defaults < provider-loaded < runtime precedence
// using the config provider and options resolver carried by the options.
func ResolveConfig(cfg Config, options ...Option) (Config, error) {
	builder := buildDispatcherOptions(cfg, options...)
	return builder.resolveConfig()
}

func (b dispatcherBuilder) resolveConfig() (Config, error) {
	defaults := DefaultConfig()
	loaded, err := b.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return Config{}, mapBuildError(err)
	}
	resolved, err := b.optionsResolver.Resolve(defaults, loaded, b.runtimeConfig)
	if err != nil {
		return Config{}, mapBuildError(err)
	}
	return resolved, nil
}

// ResolveLogger returns the provider and logger a Dispatcher built with the
// same options would use. Collaborators built before the dispatcher share it.
func ResolveLogger(cfg Config, options ...Option) (LoggerProvider, Logger, error) {
	builder := buildDispatcherOptions(cfg, options...)
	resolved, err := builder.resolveConfig()
	if err != nil {
		return nil, nil, err
	}
	provider, logger := builder.resolveLogger(resolved.ServiceName)
	return provider, logger, nil
}

// resolveLogger applies provider > logger > nop precedence. A provider hands
// out the logger named after the service.
func (b dispatcherBuilder) resolveLogger(name string) (LoggerProvider, Logger) {
	provider, logger := glog.Resolve(name, b.loggerProvider, b.logger)
	logger = glog.Ensure(logger)
	if b.loggerProvider != nil {
		if named := b.loggerProvider.GetLogger(name); named != nil {
			logger = glog.Ensure(named)
		}
	}
	return provider, logger
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader serves a fixed raw config map.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	delivery := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Delivery.UserAgent) != "" {
		delivery["user_agent"] = cfg.Delivery.UserAgent
	}
	if includeZero || cfg.Delivery.DefaultTimeoutSeconds > 0 {
		delivery["default_timeout_seconds"] = cfg.Delivery.DefaultTimeoutSeconds
	}
	if includeZero || cfg.Delivery.MaxConnectTimeoutSeconds > 0 {
		delivery["max_connect_timeout_seconds"] = cfg.Delivery.MaxConnectTimeoutSeconds
	}
	if includeZero || cfg.Delivery.MaxResponseBodyBytes > 0 {
		delivery["max_response_body_bytes"] = cfg.Delivery.MaxResponseBodyBytes
	}
	if len(delivery) > 0 {
		layer["delivery"] = delivery
	}
	return layer
}
