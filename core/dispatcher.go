package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

const (
	entryObserver = "observer"
	entryConsumer = "consumer"
)

// Dispatcher decides per product event whether to deliver synchronously or
// hand the filtered record to a queue. Its entry points absorb every error
// and panic so the triggering save operation is never affected.
type Dispatcher struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configSource    ConfigSource
	filter          RecordFilter
	sender          WebhookSender
	publisher       Publisher
	now             func() time.Time
	newMessageID    func() string
}

func NewDispatcher(cfg Config, opts ...Option) (*Dispatcher, error) {
	builder := buildDispatcherOptions(cfg, opts...)

	resolved, err := builder.resolveConfig()
	if err != nil {
		return nil, err
	}

	provider, logger := builder.resolveLogger(resolved.ServiceName)

	if builder.configSource == nil {
		return nil, NewConfigurationError("core: config source is required", nil)
	}
	if builder.sender == nil {
		return nil, NewConfigurationError("core: webhook sender is required", nil)
	}

	return &Dispatcher{
		config:          resolved,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		configSource:    builder.configSource,
		filter:          builder.filter,
		sender:          builder.sender,
		publisher:       builder.publisher,
		now:             time.Now,
		newMessageID:    uuid.NewString,
	}, nil
}

func (d *Dispatcher) Config() Config {
	if d == nil {
		return Config{}
	}
	return d.config
}

func (d *Dispatcher) Logger() Logger {
	if d == nil {
		return glog.Nop()
	}
	return d.logger
}

func (d *Dispatcher) LoggerProvider() LoggerProvider {
	if d == nil {
		return nil
	}
	return d.loggerProvider
}

// HandleProductSaved is called after a product save. It returns a report
// describing what happened and never fails.
func (d *Dispatcher) HandleProductSaved(ctx context.Context, record Record) (report DispatchReport) {
	if ctx == nil {
		ctx = context.Background()
	}
	storeID := record.StoreID()
	entityID, hasEntity := record.EntityID()

	defer func() {
		if recovered := recover(); recovered != nil {
			report = d.panicReport(ctx, entryObserver, recovered, storeID, entityID)
		}
		d.observeDispatch(ctx, report)
	}()

	if d == nil {
		return DispatchReport{
			State:   DispatchSkipped,
			StoreID: storeID,
			Err:     NewInternalError("core: dispatcher is nil", nil),
		}
	}

	if !hasEntity {
		d.log(ctx, LevelWarn, "product webhook skipped: record has no entity id", map[string]any{
			"store_id": storeID,
		})
		return DispatchReport{State: DispatchSkipped, StoreID: storeID}
	}

	cfg, disabled := d.loadEndpointConfig(ctx, entryObserver, storeID, entityID)
	if disabled != nil {
		return *disabled
	}

	filtered := d.applyFilter(ctx, record, cfg, storeID, entityID)

	if cfg.UseQueue {
		return d.publish(ctx, filtered, storeID, entityID)
	}
	return d.deliver(ctx, entryObserver, filtered, cfg, storeID, entityID)
}

// Consume handles a message taken from the queue. Settings are read again
// because they may have changed since the message was published.
func (d *Dispatcher) Consume(ctx context.Context, msg QueueMessage) (report DispatchReport) {
	if ctx == nil {
		ctx = context.Background()
	}
	storeID := msg.StoreID
	if storeID <= 0 {
		storeID = msg.Record.StoreID()
	}
	entityID := msg.EntityID
	if entityID <= 0 {
		entityID, _ = msg.Record.EntityID()
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			report = d.panicReport(ctx, entryConsumer, recovered, storeID, entityID)
		}
		d.observeDispatch(ctx, report)
	}()

	if d == nil {
		return DispatchReport{
			State:    DispatchSkipped,
			StoreID:  storeID,
			EntityID: entityID,
			Err:      NewInternalError("core: dispatcher is nil", nil),
		}
	}

	cfg, disabled := d.loadEndpointConfig(ctx, entryConsumer, storeID, entityID)
	if disabled != nil {
		return *disabled
	}

	filtered := d.applyFilter(ctx, msg.Record, cfg, storeID, entityID)
	return d.deliver(ctx, entryConsumer, filtered, cfg, storeID, entityID)
}

func (d *Dispatcher) loadEndpointConfig(
	ctx context.Context,
	entry string,
	storeID int64,
	entityID int64,
) (EndpointConfig, *DispatchReport) {
	cfg, err := d.configSource.EndpointConfig(ctx, storeID)
	if err != nil {
		wrapped := mapBuildError(err)
		d.log(ctx, LevelError, "product webhook config read failed", map[string]any{
			"entry":      entry,
			"store_id":   storeID,
			"product_id": entityID,
			"error":      err.Error(),
		})
		return EndpointConfig{}, &DispatchReport{
			State:    DispatchDisabled,
			StoreID:  storeID,
			EntityID: entityID,
			Err:      wrapped,
		}
	}
	if !cfg.Enabled {
		d.log(ctx, LevelDebug, "product webhook disabled for store", map[string]any{
			"entry":      entry,
			"store_id":   storeID,
			"product_id": entityID,
		})
		return EndpointConfig{}, &DispatchReport{
			State:    DispatchDisabled,
			StoreID:  storeID,
			EntityID: entityID,
		}
	}
	return cfg, nil
}

func (d *Dispatcher) applyFilter(ctx context.Context, record Record, cfg EndpointConfig, storeID int64, entityID int64) Record {
	filtered := d.filter.Filter(record, cfg.AllowedAttributes)
	mode := "denylist"
	if len(cfg.AllowedAttributes) > 0 {
		mode = "allowlist"
	}
	d.log(ctx, LevelDebug, "product data filtered", map[string]any{
		"store_id":        storeID,
		"product_id":      entityID,
		"mode":            mode,
		"original_count":  record.Len(),
		"filtered_count":  filtered.Len(),
		"filtered_fields": strings.Join(filtered.Keys(), ","),
	})
	return filtered
}

func (d *Dispatcher) publish(ctx context.Context, record Record, storeID int64, entityID int64) DispatchReport {
	fields := map[string]any{
		"store_id":   storeID,
		"product_id": entityID,
		"topic":      TopicProductDataCreated,
	}
	if d.publisher == nil {
		err := NewConfigurationError("core: queue mode enabled but no publisher configured", map[string]any{
			"store_id": storeID,
		})
		fields["error"] = err.Error()
		d.log(ctx, LevelError, "product webhook queue handoff failed", fields)
		return DispatchReport{State: DispatchQueueFailed, StoreID: storeID, EntityID: entityID, Err: err}
	}

	msg := QueueMessage{
		MessageID:   d.newMessageID(),
		Topic:       TopicProductDataCreated,
		StoreID:     storeID,
		EntityID:    entityID,
		Record:      record,
		PublishedAt: d.now().UTC(),
	}
	fields["message_id"] = msg.MessageID
	if err := d.publisher.Publish(ctx, TopicProductDataCreated, msg); err != nil {
		handoff := NewQueueHandoffError(err, map[string]any{
			"store_id":   storeID,
			"product_id": entityID,
			"topic":      TopicProductDataCreated,
		})
		fields["error"] = err.Error()
		d.log(ctx, LevelError, "product webhook queue handoff failed", fields)
		return DispatchReport{State: DispatchQueueFailed, StoreID: storeID, EntityID: entityID, Err: handoff}
	}

	d.log(ctx, LevelInfo, "product data queued for webhook delivery", fields)
	return DispatchReport{State: DispatchQueued, StoreID: storeID, EntityID: entityID}
}

func (d *Dispatcher) deliver(
	ctx context.Context,
	entry string,
	record Record,
	cfg EndpointConfig,
	storeID int64,
	entityID int64,
) DispatchReport {
	outcome := d.sender.Send(ctx, record, cfg)
	fields := map[string]any{
		"entry":       entry,
		"store_id":    storeID,
		"product_id":  entityID,
		"endpoint":    RedactURL(cfg.Endpoint),
		"delivery_id": outcome.DeliveryID,
		"duration_ms": outcome.Duration.Milliseconds(),
	}
	if outcome.HasStatus() {
		fields["status_code"] = outcome.StatusCode
	}

	if outcome.Success {
		d.log(ctx, LevelInfo, "product webhook delivered", fields)
		return DispatchReport{State: DispatchDelivered, StoreID: storeID, EntityID: entityID, Outcome: &outcome}
	}

	fields["error_kind"] = string(outcome.ErrorKind)
	if outcome.Err != nil {
		fields["error"] = outcome.Err.Error()
	}
	level := LevelError
	if outcome.ErrorKind == ErrorKindNotConfigured {
		level = LevelWarn
	}
	d.log(ctx, level, "product webhook delivery failed", fields)
	return DispatchReport{
		State:    DispatchDeliveryFailed,
		StoreID:  storeID,
		EntityID: entityID,
		Outcome:  &outcome,
		Err:      outcome.Err,
	}
}

func (d *Dispatcher) panicReport(ctx context.Context, entry string, recovered any, storeID int64, entityID int64) DispatchReport {
	err := NewInternalError(fmt.Sprintf("core: %s entry point panicked: %v", entry, recovered), map[string]any{
		"entry":      entry,
		"store_id":   storeID,
		"product_id": entityID,
	})
	if d != nil {
		d.log(ctx, LevelCritical, "product webhook dispatch panicked", map[string]any{
			"entry":      entry,
			"store_id":   storeID,
			"product_id": entityID,
			"error":      err.Error(),
		})
	}
	return DispatchReport{State: DispatchPanicked, StoreID: storeID, EntityID: entityID, Err: err}
}
