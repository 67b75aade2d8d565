package gojob

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-productwebhook/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

const JobIDProductDataCreated = core.TopicProductDataCreated

const (
	ParamMessageID   = "message_id"
	ParamTopic       = "topic"
	ParamStoreID     = "store_id"
	ParamEntityID    = "entity_id"
	ParamPublishedAt = "published_at"
	ParamPayload     = "payload"
)

// RetryPolicy bounds nacks of messages the consumer could not decode.
// Decoded messages are always acked.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a queued product event to go-job. The record is
// carried as a JSON string so field order survives any queue backend.
func ToExecutionMessage(msg core.QueueMessage) (*job.ExecutionMessage, error) {
	payload, err := json.Marshal(msg.Record)
	if err != nil {
		return nil, core.NewSerializationError(err, map[string]any{
			"store_id":  msg.StoreID,
			"entity_id": msg.EntityID,
		})
	}
	topic := strings.TrimSpace(msg.Topic)
	if topic == "" {
		topic = JobIDProductDataCreated
	}
	params := map[string]any{
		ParamMessageID: strings.TrimSpace(msg.MessageID),
		ParamTopic:     topic,
		ParamStoreID:   msg.StoreID,
		ParamEntityID:  msg.EntityID,
		ParamPayload:   string(payload),
	}
	if !msg.PublishedAt.IsZero() {
		params[ParamPublishedAt] = msg.PublishedAt.UTC().Format(time.RFC3339Nano)
	}
	return &job.ExecutionMessage{
		JobID:          topic,
		ScriptPath:     topic,
		Parameters:     params,
		IdempotencyKey: strings.TrimSpace(msg.MessageID),
	}, nil
}

// FromExecutionMessage maps a go-job message back into a queued product
// event. The payload may arrive as a JSON string or as a decoded object.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.QueueMessage, error) {
	if msg == nil {
		return core.QueueMessage{}, fmt.Errorf("gojob: execution message is required")
	}
	params := msg.Parameters
	record, err := decodePayload(params[ParamPayload])
	if err != nil {
		return core.QueueMessage{}, err
	}
	out := core.QueueMessage{
		MessageID: stringParam(params[ParamMessageID]),
		Topic:     stringParam(params[ParamTopic]),
		Record:    record,
	}
	if out.MessageID == "" {
		out.MessageID = strings.TrimSpace(msg.IdempotencyKey)
	}
	if out.Topic == "" {
		out.Topic = strings.TrimSpace(msg.JobID)
	}
	if id, ok := int64Param(params[ParamStoreID]); ok {
		out.StoreID = id
	}
	if id, ok := int64Param(params[ParamEntityID]); ok {
		out.EntityID = id
	}
	if raw := stringParam(params[ParamPublishedAt]); raw != "" {
		if parsed, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			out.PublishedAt = parsed
		}
	}
	return out, nil
}

// Publisher hands product events to a go-job queue.
type Publisher struct {
	enqueuer queue.Enqueuer
}

func NewPublisher(enqueuer queue.Enqueuer) *Publisher {
	return &Publisher{enqueuer: enqueuer}
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg core.QueueMessage) error {
	if p == nil || p.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if trimmed := strings.TrimSpace(topic); trimmed != "" {
		msg.Topic = trimmed
	}
	execMsg, err := ToExecutionMessage(msg)
	if err != nil {
		return err
	}
	return p.enqueuer.Enqueue(ctx, execMsg)
}

func decodePayload(raw any) (core.Record, error) {
	switch typed := raw.(type) {
	case nil:
		return core.Record{}, fmt.Errorf("gojob: payload parameter is required")
	case string:
		var record core.Record
		if err := json.Unmarshal([]byte(typed), &record); err != nil {
			return core.Record{}, fmt.Errorf("gojob: decode payload: %w", err)
		}
		return record, nil
	case []byte:
		var record core.Record
		if err := json.Unmarshal(typed, &record); err != nil {
			return core.Record{}, fmt.Errorf("gojob: decode payload: %w", err)
		}
		return record, nil
	case map[string]any:
		return core.RecordFromMap(typed)
	default:
		return core.Record{}, fmt.Errorf("gojob: unsupported payload type %T", raw)
	}
}

func stringParam(raw any) string {
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return ""
	}
}

func int64Param(raw any) (int64, bool) {
	switch typed := raw.(type) {
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case float64:
		if typed != float64(int64(typed)) {
			return 0, false
		}
		return int64(typed), true
	case json.Number:
		parsed, err := typed.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

var _ core.Publisher = (*Publisher)(nil)
