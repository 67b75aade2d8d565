package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-productwebhook/core"
	"github.com/goliatone/go-productwebhook/transport"
	"github.com/google/uuid"
)

const maxLoggedResponseBody = 512

var successStatuses = map[int]struct{}{
	http.StatusOK:        {},
	http.StatusCreated:   {},
	http.StatusAccepted:  {},
	http.StatusNoContent: {},
}

// IsSuccessStatus reports whether status counts as a delivered webhook.
func IsSuccessStatus(status int) bool {
	_, ok := successStatuses[status]
	return ok
}

type Poster interface {
	Post(ctx context.Context, req transport.Request) (transport.Response, error)
}

type SenderOption func(*Sender)

func WithSenderLogger(logger core.Logger) SenderOption {
	return func(s *Sender) {
		s.logger = logger
	}
}

// WithDeliveryConfig applies user agent, connect timeout and body cap from
// the resolved service config.
func WithDeliveryConfig(cfg core.DeliveryConfig) SenderOption {
	return func(s *Sender) {
		if ua := strings.TrimSpace(cfg.UserAgent); ua != "" {
			s.userAgent = ua
		}
		if cfg.MaxConnectTimeoutSeconds > 0 {
			s.maxConnectTimeout = time.Duration(cfg.MaxConnectTimeoutSeconds) * time.Second
		}
		if cfg.MaxResponseBodyBytes > 0 {
			s.maxResponseBodyBytes = cfg.MaxResponseBodyBytes
		}
		if cfg.DefaultTimeoutSeconds > 0 {
			s.defaultTimeoutSeconds = cfg.DefaultTimeoutSeconds
		}
	}
}

func WithDeliveryIDGenerator(next func() string) SenderOption {
	return func(s *Sender) {
		if next != nil {
			s.newDeliveryID = next
		}
	}
}

func WithSenderClock(now func() time.Time) SenderOption {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// Sender performs one delivery attempt per call. It never retries and
// holds no mutable state.
type Sender struct {
	validator             core.URLValidator
	poster                Poster
	logger                core.Logger
	userAgent             string
	defaultTimeoutSeconds int
	maxConnectTimeout     time.Duration
	maxResponseBodyBytes  int64
	newDeliveryID         func() string
	now                   func() time.Time
}

func NewSender(validator core.URLValidator, poster Poster, opts ...SenderOption) (*Sender, error) {
	if validator == nil {
		return nil, core.NewConfigurationError("webhooks: url validator is required", nil)
	}
	if poster == nil {
		poster = transport.NewRESTAdapter(nil)
	}
	sender := &Sender{
		validator:             validator,
		poster:                poster,
		userAgent:             core.DefaultUserAgent,
		defaultTimeoutSeconds: core.DefaultTimeoutSeconds,
		maxConnectTimeout:     core.DefaultMaxConnectTimeout,
		maxResponseBodyBytes:  core.DefaultMaxResponseBodyBytes,
		newDeliveryID:         uuid.NewString,
		now:                   time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(sender)
	}
	return sender, nil
}

// Send delivers record to cfg.Endpoint. The record must already be
// filtered; Send posts whatever it is given.
func (s *Sender) Send(ctx context.Context, record core.Record, cfg core.EndpointConfig) core.DeliveryOutcome {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := s.now()
	outcome := s.send(ctx, record, cfg)
	outcome.Duration = s.now().Sub(startedAt)
	return outcome
}

func (s *Sender) send(ctx context.Context, record core.Record, cfg core.EndpointConfig) core.DeliveryOutcome {
	deliveryID := s.newDeliveryID()
	fields := map[string]any{
		"delivery_id": deliveryID,
		"store_id":    record.StoreID(),
	}
	if id, ok := record.EntityID(); ok {
		fields["product_id"] = id
	}

	if !cfg.HasEndpoint() {
		core.LogWithLevel(ctx, s.logger, core.LevelWarn, "webhook endpoint not configured", fields)
		return core.DeliveryOutcome{
			ErrorKind:  core.ErrorKindNotConfigured,
			DeliveryID: deliveryID,
			Err:        core.NewConfigurationError("webhooks: endpoint is not configured", nil),
		}
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	fields["endpoint"] = core.RedactURL(endpoint)
	if result := s.validator.Validate(ctx, endpoint); !result.Valid {
		fields["reason"] = string(result.Reason)
		core.LogWithLevel(ctx, s.logger, core.LevelError, "webhook endpoint failed validation", fields)
		return core.DeliveryOutcome{
			ErrorKind:  core.ErrorKindInvalidURL,
			DeliveryID: deliveryID,
			Err:        result.Err(),
		}
	}

	body, err := json.Marshal(record)
	if err != nil {
		fields["error"] = err.Error()
		core.LogWithLevel(ctx, s.logger, core.LevelError, "webhook payload serialization failed", fields)
		return core.DeliveryOutcome{
			ErrorKind:  core.ErrorKindSerialization,
			DeliveryID: deliveryID,
			Err:        core.NewSerializationError(err, map[string]any{"delivery_id": deliveryID}),
		}
	}

	headers := map[string]string{
		"Content-Type":   "application/json",
		"User-Agent":     s.userAgent,
		HeaderDeliveryID: deliveryID,
		HeaderTopic:      core.TopicProductDataCreated,
	}
	if strings.TrimSpace(cfg.Secret) != "" {
		headers[HeaderSignature] = Sign(cfg.Secret, body)
	}

	timeoutCfg := cfg
	if timeoutCfg.TimeoutSeconds <= 0 {
		timeoutCfg.TimeoutSeconds = s.defaultTimeoutSeconds
	}
	core.LogWithLevel(ctx, s.logger, core.LevelDebug, "sending product webhook", fields)
	res, err := s.poster.Post(ctx, transport.Request{
		URL:                  endpoint,
		Body:                 body,
		Headers:              headers,
		Timeout:              timeoutCfg.Timeout(),
		ConnectTimeout:       timeoutCfg.ConnectTimeout(s.maxConnectTimeout),
		MaxResponseBodyBytes: s.maxResponseBodyBytes,
	})
	if err != nil && res.StatusCode == 0 {
		fields["error"] = err.Error()
		core.LogWithLevel(ctx, s.logger, core.LevelError, "webhook transport failed", fields)
		return core.DeliveryOutcome{
			ErrorKind:  core.ErrorKindTransport,
			DeliveryID: deliveryID,
			Err:        core.NewTransportError(err, map[string]any{"delivery_id": deliveryID}),
		}
	}

	responseBody := string(res.Body)
	fields["status_code"] = res.StatusCode
	if IsSuccessStatus(res.StatusCode) {
		core.LogWithLevel(ctx, s.logger, core.LevelDebug, "webhook endpoint accepted delivery", fields)
		return core.DeliveryOutcome{
			Success:      true,
			StatusCode:   res.StatusCode,
			ResponseBody: responseBody,
			DeliveryID:   deliveryID,
		}
	}

	fields["response_body"] = truncate(responseBody, maxLoggedResponseBody)
	core.LogWithLevel(ctx, s.logger, core.LevelError, "webhook endpoint returned non-success status", fields)
	return core.DeliveryOutcome{
		StatusCode:   res.StatusCode,
		ErrorKind:    core.ErrorKindHTTP,
		ResponseBody: responseBody,
		DeliveryID:   deliveryID,
		Err: core.NewHTTPError(res.StatusCode, map[string]any{
			"delivery_id":   deliveryID,
			"response_body": truncate(responseBody, maxLoggedResponseBody),
		}),
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}

var _ core.WebhookSender = (*Sender)(nil)
