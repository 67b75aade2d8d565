package core

import (
	"fmt"
	"strings"
	"time"
)

const TopicProductDataCreated = "magendoo.productdata.created"

const (
	DefaultTimeoutSeconds       = 10
	DefaultMaxConnectTimeout    = 5 * time.Second
	DefaultUserAgent            = "go-productwebhook/1.0"
	DefaultMaxResponseBodyBytes = int64(64 << 10)
	DefaultServiceName          = "productwebhook"
)

// EndpointConfig holds the per-store delivery settings. It is owned by an
// external configuration source and must be read again for every event.
type EndpointConfig struct {
	Endpoint          string
	Enabled           bool
	UseQueue          bool
	TimeoutSeconds    int
	AllowedAttributes []string
	Secret            string
}

func (c EndpointConfig) HasEndpoint() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

func (c EndpointConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConnectTimeout is min(timeout, max).
func (c EndpointConfig) ConnectTimeout(max time.Duration) time.Duration {
	if max <= 0 {
		max = DefaultMaxConnectTimeout
	}
	timeout := c.Timeout()
	if timeout < max {
		return timeout
	}
	return max
}

type ViolationReason string

const (
	ViolationNone             ViolationReason = ""
	ViolationEmptyURL         ViolationReason = "empty_url"
	ViolationMalformedURL     ViolationReason = "malformed_url"
	ViolationDisallowedScheme ViolationReason = "disallowed_scheme"
	ViolationBlacklistedHost  ViolationReason = "blacklisted_host"
	ViolationPrivateIP        ViolationReason = "private_ip"
)

type ValidationResult struct {
	Valid   bool
	Reason  ViolationReason
	Message string
}

func ValidationPassed() ValidationResult {
	return ValidationResult{Valid: true}
}

func ValidationFailed(reason ViolationReason, message string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason, Message: message}
}

// Err converts a failed result into a validation error, nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return newValidationError(r.Reason, r.Message)
}

type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindNotConfigured ErrorKind = "not_configured"
	ErrorKindInvalidURL    ErrorKind = "invalid_endpoint"
	ErrorKindSerialization ErrorKind = "serialization_error"
	ErrorKindTransport     ErrorKind = "transport_error"
	ErrorKindHTTP          ErrorKind = "http_error"
)

type DeliveryOutcome struct {
	Success      bool
	StatusCode   int
	ErrorKind    ErrorKind
	ResponseBody string
	DeliveryID   string
	Duration     time.Duration
	Err          error
}

func (o DeliveryOutcome) HasStatus() bool {
	return o.StatusCode > 0
}

// QueueMessage is the payload handed to the queue transport. Store and
// entity ids travel beside the record because filtering can remove them.
type QueueMessage struct {
	MessageID   string
	Topic       string
	StoreID     int64
	EntityID    int64
	Record      Record
	PublishedAt time.Time
}

type DispatchState string

const (
	DispatchSkipped        DispatchState = "skipped"
	DispatchDisabled       DispatchState = "disabled"
	DispatchQueued         DispatchState = "queued"
	DispatchQueueFailed    DispatchState = "queue_failed"
	DispatchDelivered      DispatchState = "delivered"
	DispatchDeliveryFailed DispatchState = "delivery_failed"
	DispatchPanicked       DispatchState = "panicked"
)

// DispatchReport describes what an entry point did. Entry points return a
// report instead of an error.
type DispatchReport struct {
	State    DispatchState
	StoreID  int64
	EntityID int64
	Outcome  *DeliveryOutcome
	Err      error
}

func (r DispatchReport) String() string {
	return fmt.Sprintf("dispatch(state=%s store=%d entity=%d)", r.State, r.StoreID, r.EntityID)
}
