package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// ConfigSource reads per-store endpoint settings. Implementations must not
// cache across calls; scope values can change at runtime.
type ConfigSource interface {
	EndpointConfig(ctx context.Context, storeID int64) (EndpointConfig, error)
}

type URLValidator interface {
	Validate(ctx context.Context, rawURL string) ValidationResult
}

type RecordFilter interface {
	Filter(record Record, allowList []string) Record
}

// WebhookSender performs one delivery attempt. Callers are responsible for
// filtering the record first.
type WebhookSender interface {
	Send(ctx context.Context, record Record, cfg EndpointConfig) DeliveryOutcome
}

type Publisher interface {
	Publish(ctx context.Context, topic string, msg QueueMessage) error
}

// ProductSavedHandler is the observer-side entry point.
type ProductSavedHandler interface {
	HandleProductSaved(ctx context.Context, record Record) DispatchReport
}

// QueueConsumer is the consumer-side entry point.
type QueueConsumer interface {
	Consume(ctx context.Context, msg QueueMessage) DispatchReport
}

// SecretCipher seals endpoint signing secrets at rest.
type SecretCipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}
